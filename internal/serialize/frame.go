package serialize

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds a single frame payload.
const MaxFrameSize = 16 << 20

// FrameWriter writes values as frames: a big-endian uint32 payload length
// followed by the zstd-compressed MessagePack encoding of the value.
// It is safe for concurrent use.
type FrameWriter struct {
	mu  sync.Mutex
	w   io.Writer
	c   *Compressor
	buf []byte
}

// NewFrameWriter creates a FrameWriter on w.
func NewFrameWriter(w io.Writer) (*FrameWriter, error) {
	c, err := NewCompressor()
	if err != nil {
		return nil, err
	}
	return &FrameWriter{w: w, c: c}, nil
}

// Write encodes v and writes it as one frame.
func (fw *FrameWriter) Write(v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.buf = fw.c.Compress(append(fw.buf[:0], 0, 0, 0, 0), data)
	size := len(fw.buf) - 4
	if size > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", size, MaxFrameSize)
	}
	binary.BigEndian.PutUint32(fw.buf, uint32(size))
	if _, err := fw.w.Write(fw.buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close releases the compressor. It does not close the underlying writer.
func (fw *FrameWriter) Close() error {
	return fw.c.Close()
}

// FrameReader reads frames written by FrameWriter.
type FrameReader struct {
	r *bufio.Reader
	d *Decompressor
}

// NewFrameReader creates a FrameReader on r.
func NewFrameReader(r io.Reader) (*FrameReader, error) {
	d, err := NewDecompressor()
	if err != nil {
		return nil, err
	}
	return &FrameReader{r: bufio.NewReader(r), d: d}, nil
}

// Read decodes the next frame into v, which must be a pointer.
// Returns io.EOF when no frames remain.
func (fr *FrameReader) Read(v any) error {
	var header [4]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("failed to read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", size, MaxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return fmt.Errorf("failed to read frame payload: %w", err)
	}

	data, err := fr.d.Decompress(payload)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return nil
}

// Close releases the decompressor.
func (fr *FrameReader) Close() {
	fr.d.Close()
}
