package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// StaticCatalog is a catalog whose schemas are fixed once built.
type StaticCatalog struct {
	schemas map[string]*staticSchema
}

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		schemas: make(map[string]*staticSchema),
	}
}

// AddSchema adds a schema holding tables. It is not safe to call
// concurrently with lookups; build the catalog before serving it.
func (c *StaticCatalog) AddSchema(name, comment string, tables ...Table) {
	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		byName[t.Name()] = t
	}
	c.schemas[name] = &staticSchema{name: name, comment: comment, tables: byName}
}

// Schemas implements Catalog interface. Schemas are sorted by name.
func (c *StaticCatalog) Schemas(ctx context.Context) ([]Schema, error) {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]Schema, 0, len(names))
	for _, name := range names {
		result = append(result, c.schemas[name])
	}
	return result, nil
}

// Schema implements Catalog interface.
func (c *StaticCatalog) Schema(ctx context.Context, name string) (Schema, error) {
	schema, ok := c.schemas[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return schema, nil
}

type staticSchema struct {
	name    string
	comment string
	tables  map[string]Table
}

func (s *staticSchema) Name() string    { return s.name }
func (s *staticSchema) Comment() string { return s.comment }

// Tables implements Schema interface. Tables are sorted by name.
func (s *staticSchema) Tables(ctx context.Context) ([]Table, error) {
	result := make([]Table, 0, len(s.tables))
	for _, table := range s.tables {
		result = append(result, table)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

// Table implements Schema interface.
func (s *staticSchema) Table(ctx context.Context, name string) (Table, error) {
	table, ok := s.tables[name]
	if !ok {
		return nil, nil // Not found, not an error
	}
	return table, nil
}

// StaticTable is a table backed by a scan function.
type StaticTable struct {
	name     string
	comment  string
	schema   *arrow.Schema
	scanFunc ScanFunc
}

// NewStaticTable creates a table that scans through scanFunc.
func NewStaticTable(name, comment string, schema *arrow.Schema, scanFunc ScanFunc) *StaticTable {
	return &StaticTable{
		name:     name,
		comment:  comment,
		schema:   schema,
		scanFunc: scanFunc,
	}
}

// NewRecordTable creates a table over in-memory records. The table
// retains records; call Release when the table is no longer served.
func NewRecordTable(name, comment string, schema *arrow.Schema, records []arrow.RecordBatch) (*RecordTable, error) {
	for i, rec := range records {
		if !rec.Schema().Equal(schema) {
			return nil, fmt.Errorf("record %d of table %s does not match the table schema", i, name)
		}
	}
	for _, rec := range records {
		rec.Retain()
	}
	t := &RecordTable{records: records}
	t.StaticTable = NewStaticTable(name, comment, schema, t.scan)
	return t, nil
}

func (t *StaticTable) Name() string               { return t.name }
func (t *StaticTable) Comment() string            { return t.comment }
func (t *StaticTable) ArrowSchema() *arrow.Schema { return t.schema }

// Scan implements Table interface.
func (t *StaticTable) Scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	return t.scanFunc(ctx, opts)
}

// RecordTable serves a fixed set of records.
type RecordTable struct {
	*StaticTable
	records []arrow.RecordBatch
}

func (t *RecordTable) scan(ctx context.Context, opts *ScanOptions) (array.RecordReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return array.NewRecordReader(t.schema, t.records)
}

// Release releases the table's records.
func (t *RecordTable) Release() {
	for _, rec := range t.records {
		rec.Release()
	}
	t.records = nil
}
