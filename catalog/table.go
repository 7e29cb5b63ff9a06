package catalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/airport-predicate/filter"
)

// Table represents a scannable table with a fixed schema.
// Implementations MUST be goroutine-safe.
type Table interface {
	// Name returns the table name (e.g., "users", "orders").
	Name() string

	// Comment returns optional table documentation.
	Comment() string

	// ArrowSchema returns the schema describing table columns.
	// MUST return a valid *arrow.Schema.
	ArrowSchema() *arrow.Schema

	// Scan returns a reader over the table's rows.
	// Context allows cancellation; implementation MUST respect ctx.Done().
	// Caller MUST call reader.Release() to free memory.
	// Returned RecordReader schema MUST match ArrowSchema().
	Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
}

// ScanOptions provides options for table scans.
type ScanOptions struct {
	// Columns the client will read. If nil/empty, all columns.
	// Tables MAY use this as a hint but must still return every column.
	Columns []string

	// Filter is the clause the client pushed down. Nil means no filter.
	// The server applies it to scanned rows; tables MAY use it to skip
	// data early but must not rely on being the only filter.
	Filter *filter.FilterPushdown

	// Limit is maximum rows to return.
	// If 0 or negative, no limit.
	Limit int64

	// BatchSize is a hint for RecordReader batch size.
	// Implementations MAY ignore this hint.
	BatchSize int
}

// ScanFunc is a function type for table data retrieval.
type ScanFunc func(ctx context.Context, opts *ScanOptions) (array.RecordReader, error)
