package catalog

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func TestProjectSchema(t *testing.T) {
	meta := arrow.NewMetadata([]string{"source"}, []string{"test"})
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64},
	}, &meta)

	tests := []struct {
		name    string
		columns []string
		want    []string
	}{
		{"all", nil, []string{"id", "name", "score"}},
		{"reordered", []string{"score", "id"}, []string{"score", "id"}},
		{"unknown skipped", []string{"missing", "name"}, []string{"name"}},
		{"no match", []string{"missing"}, []string{"id", "name", "score"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectSchema(schema, tt.columns)
			if got.NumFields() != len(tt.want) {
				t.Fatalf("expected %d fields, got %d", len(tt.want), got.NumFields())
			}
			for i, name := range tt.want {
				if got.Field(i).Name != name {
					t.Errorf("field %d: expected %s, got %s", i, name, got.Field(i).Name)
				}
			}
			if v, ok := got.Metadata().GetValue("source"); !ok || v != "test" {
				t.Error("expected schema metadata to be preserved")
			}
		})
	}
}

func TestProjectRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := usersRecord(mem, 1, 2)
	defer rec.Release()

	same := ProjectRecord(rec, ProjectSchema(rec.Schema(), nil))
	if same.NumCols() != 2 {
		t.Errorf("expected full record, got %d columns", same.NumCols())
	}
	same.Release()

	names := ProjectRecord(rec, ProjectSchema(rec.Schema(), []string{"name"}))
	defer names.Release()
	if names.NumCols() != 1 || names.NumRows() != 2 || names.ColumnName(0) != "name" {
		t.Errorf("unexpected projection %v", names.Schema())
	}
}
