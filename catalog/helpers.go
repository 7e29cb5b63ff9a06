package catalog

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ProjectSchema returns a projected schema containing only the specified columns.
// If columns is nil or empty, returns the full schema unchanged.
// Column order in the returned schema matches the order in columns slice;
// unknown names are skipped. Original schema metadata is preserved.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}
	fields := make([]arrow.Field, 0, len(columns))
	for _, col := range columns {
		if idx := schema.FieldIndices(col); len(idx) > 0 {
			fields = append(fields, schema.Field(idx[0]))
		}
	}
	if len(fields) == 0 {
		// No matching columns - return original schema
		return schema
	}
	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}

// ProjectRecord returns rec restricted to the fields of projected, which
// must come from ProjectSchema(rec.Schema(), ...). The caller must release
// the returned record.
func ProjectRecord(rec arrow.RecordBatch, projected *arrow.Schema) arrow.RecordBatch {
	if projected.Equal(rec.Schema()) {
		rec.Retain()
		return rec
	}
	cols := make([]arrow.Array, projected.NumFields())
	for i, f := range projected.Fields() {
		cols[i] = rec.Column(rec.Schema().FieldIndices(f.Name)[0])
	}
	return array.NewRecordBatch(projected, cols, rec.NumRows())
}
