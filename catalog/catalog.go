// Package catalog describes the tables a Flight server can scan with a
// pushed-down filter.
//
// A Catalog holds named schemas and each schema holds named tables. Static
// catalogs are built in code; other implementations may reflect live state.
// All interfaces are goroutine-safe and support context-based cancellation.
package catalog

import (
	"context"
)

// Catalog represents the top-level metadata container.
// All methods MUST be goroutine-safe.
type Catalog interface {
	// Schemas returns all schemas visible in this catalog.
	// Returns empty slice (not nil) if no schemas available.
	Schemas(ctx context.Context) ([]Schema, error)

	// Schema returns a specific schema by name.
	// Returns (nil, nil) if schema doesn't exist (not an error).
	// Returns (nil, err) if lookup fails for other reasons.
	Schema(ctx context.Context, name string) (Schema, error)
}

// Schema is a named group of tables.
// Implementations MUST be goroutine-safe.
type Schema interface {
	// Name returns the schema name (e.g., "main").
	Name() string

	// Comment returns optional schema documentation.
	Comment() string

	// Tables returns all tables in this schema.
	// Returns empty slice (not nil) if no tables available.
	Tables(ctx context.Context) ([]Table, error)

	// Table returns a specific table by name.
	// Returns (nil, nil) if table doesn't exist (not an error).
	Table(ctx context.Context, name string) (Table, error)
}
