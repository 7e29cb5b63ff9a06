package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/airport-predicate/filter"
)

// readArrowStream loads every record batch of an Arrow IPC stream file.
// The caller releases the returned records.
func readArrowStream(path string, mem memory.Allocator) (*arrow.Schema, []arrow.RecordBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read Arrow stream %s: %w", path, err)
	}
	defer reader.Release()

	var records []arrow.RecordBatch
	for reader.Next() {
		rec := reader.RecordBatch()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		releaseAll(records)
		return nil, nil, fmt.Errorf("failed to read Arrow stream %s: %w", path, err)
	}
	return reader.Schema(), records, nil
}

// readArrowSchema returns the schema of an Arrow IPC stream file without
// reading its batches.
func readArrowSchema(path string) (*arrow.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := ipc.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read Arrow stream %s: %w", path, err)
	}
	defer reader.Release()
	return reader.Schema(), nil
}

// readFilter parses a DuckDB filter pushdown JSON file. An empty path is
// the empty clause.
func readFilter(path string) (*filter.FilterPushdown, error) {
	if path == "" {
		return &filter.FilterPushdown{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter: %w", err)
	}
	fp, err := filter.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter %s: %w", path, err)
	}
	return fp, nil
}

// recordWriter writes record batches in one output format.
type recordWriter interface {
	Write(rec arrow.RecordBatch) error
	Close() error
}

// ipcWriter writes an Arrow IPC stream.
type ipcWriter struct {
	w *ipc.Writer
}

func (w *ipcWriter) Write(rec arrow.RecordBatch) error { return w.w.Write(rec) }
func (w *ipcWriter) Close() error                      { return w.w.Close() }

// jsonLinesWriter writes one JSON object per row.
type jsonLinesWriter struct {
	w io.Writer
}

func (w *jsonLinesWriter) Write(rec arrow.RecordBatch) error { return array.RecordToJSON(rec, w.w) }
func (w *jsonLinesWriter) Close() error                      { return nil }

// newRecordWriter returns a writer for output, "ipc" or "jsonl".
func newRecordWriter(output string, w io.Writer, schema *arrow.Schema, mem memory.Allocator) (recordWriter, error) {
	switch output {
	case "ipc":
		return &ipcWriter{w: ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))}, nil
	case "jsonl":
		return &jsonLinesWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q: must be ipc or jsonl", output)
	}
}

func releaseAll(records []arrow.RecordBatch) {
	for _, rec := range records {
		rec.Release()
	}
}
