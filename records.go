package predicate

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
)

// RowFromRecord returns row i of rec. Values reference rec's buffers and
// are valid only while rec is retained.
func RowFromRecord(rec arrow.RecordBatch, i int) Row {
	row := make(Row, rec.NumCols())
	for c := range row {
		row[c] = arrayValue(rec.Column(c), i)
	}
	return row
}

// arrayValue returns element i in a form the type enforcer accepts.
func arrayValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return a.Value(i)
	case *array.Int16:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return a.Value(i)
	case *array.Uint16:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	case *array.Uint64:
		return a.Value(i)
	case *array.Float16:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Decimal128:
		return a.Value(i)
	case *array.Decimal256:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.StringView:
		return a.Value(i)
	case *array.Binary:
		return a.Value(i)
	case *array.LargeBinary:
		return a.Value(i)
	case *array.BinaryView:
		return a.Value(i)
	case *array.FixedSizeBinary:
		return a.Value(i)
	case *array.Date32:
		return a.Value(i)
	case *array.Date64:
		return a.Value(i)
	case *array.Timestamp:
		return a.Value(i)
	case *array.Time32:
		return a.Value(i)
	case *array.Time64:
		return a.Value(i)
	case *array.Duration:
		return a.Value(i)
	case array.ExtensionArray:
		v := arrayValue(a.Storage(), i)
		if a.ExtensionType().ExtensionName() == "arrow.uuid" {
			if b, ok := v.([]byte); ok {
				if id, err := uuid.FromBytes(b); err == nil {
					return id
				}
			}
		}
		return v
	}
	return arr.GetOneForMarshal(i)
}

// FilterRecord evaluates every row of rec and returns a record holding
// only the matching rows. Rows are evaluated with the entry point for the
// predicate's key shape; rows have no key, so the key is empty.
//
// The caller must release the returned record.
func (p *Predicate) FilterRecord(rec arrow.RecordBatch, mem memory.Allocator) (arrow.RecordBatch, error) {
	if !rec.Schema().Equal(p.schema) {
		return nil, fmt.Errorf("record schema %s does not match predicate schema %s",
			schemaString(rec.Schema()), schemaString(p.schema))
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	// runs holds [start, end) ranges of consecutive matching rows.
	var runs [][2]int64
	var matched int64
	n := int(rec.NumRows())
	for i := 0; i < n; i++ {
		if !p.match(RowFromRecord(rec, i)) {
			continue
		}
		matched++
		if k := len(runs); k > 0 && runs[k-1][1] == int64(i) {
			runs[k-1][1]++
			continue
		}
		runs = append(runs, [2]int64{int64(i), int64(i) + 1})
	}

	switch {
	case matched == int64(n):
		rec.Retain()
		return rec, nil
	case len(runs) == 0:
		return rec.NewSlice(0, 0), nil
	case len(runs) == 1:
		return rec.NewSlice(runs[0][0], runs[0][1]), nil
	}

	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for c := range cols {
		parts := make([]arrow.Array, len(runs))
		for r, run := range runs {
			parts[r] = array.NewSlice(rec.Column(c), run[0], run[1])
		}
		col, err := array.Concatenate(parts, mem)
		for _, part := range parts {
			part.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to assemble column %s: %w", rec.Schema().Field(c).Name, err)
		}
		cols[c] = col
	}
	return array.NewRecordBatch(p.schema, cols, matched), nil
}

func (p *Predicate) match(row Row) bool {
	if p.shape == KeyShapeWindowed {
		return p.EvaluateWindowed(WindowedKey{}, row)
	}
	return p.EvaluatePlain("", row)
}

// FilteredReader yields the matching rows of each record from an
// underlying reader. Records with no matching rows are skipped.
type FilteredReader struct {
	refCount atomic.Int64
	pred     *Predicate
	input    array.RecordReader
	mem      memory.Allocator
	current  arrow.RecordBatch
	err      error
}

// NewFilteredReader wraps input. The reader retains input and releases it
// when its own reference count drops to zero.
func NewFilteredReader(p *Predicate, input array.RecordReader, mem memory.Allocator) (*FilteredReader, error) {
	if !input.Schema().Equal(p.schema) {
		return nil, fmt.Errorf("reader schema %s does not match predicate schema %s",
			schemaString(input.Schema()), schemaString(p.schema))
	}
	input.Retain()
	r := &FilteredReader{pred: p, input: input, mem: mem}
	r.refCount.Store(1)
	return r, nil
}

func (r *FilteredReader) Retain() { r.refCount.Add(1) }

func (r *FilteredReader) Release() {
	if r.refCount.Add(-1) != 0 {
		return
	}
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	r.input.Release()
}

func (r *FilteredReader) Schema() *arrow.Schema { return r.pred.schema }

func (r *FilteredReader) Next() bool {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	if r.err != nil {
		return false
	}
	for r.input.Next() {
		out, err := r.pred.FilterRecord(r.input.RecordBatch(), r.mem)
		if err != nil {
			r.err = err
			return false
		}
		if out.NumRows() == 0 {
			out.Release()
			continue
		}
		r.current = out
		return true
	}
	r.err = r.input.Err()
	return false
}

func (r *FilteredReader) RecordBatch() arrow.RecordBatch { return r.current }

func (r *FilteredReader) Record() arrow.RecordBatch { return r.current }

func (r *FilteredReader) Err() error { return r.err }
