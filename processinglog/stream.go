package processinglog

import (
	"io"

	"github.com/hugr-lab/airport-predicate/internal/serialize"
)

// StreamSink appends events to a writer as compressed MessagePack frames.
type StreamSink struct {
	fw *serialize.FrameWriter
}

// NewStreamSink creates a sink writing to w. The caller owns w.
func NewStreamSink(w io.Writer) (*StreamSink, error) {
	fw, err := serialize.NewFrameWriter(w)
	if err != nil {
		return nil, err
	}
	return &StreamSink{fw: fw}, nil
}

func (s *StreamSink) Emit(ev Event) error { return s.fw.Write(ev) }

// Close releases the encoder. It does not close the underlying writer.
func (s *StreamSink) Close() error { return s.fw.Close() }

// StreamReader reads events written by StreamSink.
type StreamReader struct {
	fr *serialize.FrameReader
}

// NewStreamReader creates a reader on r.
func NewStreamReader(r io.Reader) (*StreamReader, error) {
	fr, err := serialize.NewFrameReader(r)
	if err != nil {
		return nil, err
	}
	return &StreamReader{fr: fr}, nil
}

// Next returns the next event, or io.EOF.
func (r *StreamReader) Next() (Event, error) {
	var ev Event
	err := r.fr.Read(&ev)
	return ev, err
}

// Close releases the decoder.
func (r *StreamReader) Close() { r.fr.Close() }
