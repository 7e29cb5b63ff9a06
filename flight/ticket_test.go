package flight

import (
	"testing"
)

// idGreaterThanJSON is the pushdown DuckDB sends for WHERE id > n over
// the columns (id, name).
func idGreaterThanJSON(n string) []byte {
	return []byte(`{
		"filters": [
			{
				"expression_class": "BOUND_COMPARISON",
				"type": "COMPARE_GREATERTHAN",
				"left": {
					"expression_class": "BOUND_COLUMN_REF",
					"type": "BOUND_COLUMN_REF",
					"return_type": {"id": "BIGINT"},
					"binding": {"table_index": 0, "column_index": 0},
					"depth": 0
				},
				"right": {
					"expression_class": "BOUND_CONSTANT",
					"type": "VALUE_CONSTANT",
					"value": {"type": {"id": "BIGINT"}, "is_null": false, "value": ` + n + `}
				}
			}
		],
		"column_binding_names_by_index": ["id", "name"]
	}`)
}

func TestEncodeDecodeTicket(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		table   string
		filter  []byte
		columns []string
	}{
		{name: "simple table", schema: "main", table: "users"},
		{name: "schema with underscore", schema: "my_schema", table: "my_table"},
		{name: "with filter", schema: "main", table: "users", filter: idGreaterThanJSON("2")},
		{name: "with columns", schema: "main", table: "users", columns: []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeTicket(tt.schema, tt.table, tt.filter, tt.columns...)
			if err != nil {
				t.Fatalf("EncodeTicket() error = %v", err)
			}

			decoded, err := DecodeTicket(encoded)
			if err != nil {
				t.Fatalf("DecodeTicket() error = %v", err)
			}
			if decoded.Schema != tt.schema {
				t.Errorf("Schema = %v, want %v", decoded.Schema, tt.schema)
			}
			if decoded.Table != tt.table {
				t.Errorf("Table = %v, want %v", decoded.Table, tt.table)
			}
			if len(decoded.Columns) != len(tt.columns) {
				t.Errorf("Columns = %v, want %v", decoded.Columns, tt.columns)
			}

			fp, err := decoded.FilterPushdown()
			if err != nil {
				t.Fatalf("FilterPushdown() error = %v", err)
			}
			wantFilters := 0
			if tt.filter != nil {
				wantFilters = 1
			}
			if len(fp.Filters) != wantFilters {
				t.Errorf("expected %d filters, got %d", wantFilters, len(fp.Filters))
			}
		})
	}
}

func TestEncodeTicketErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		table  string
		filter []byte
	}{
		{name: "empty schema", table: "users"},
		{name: "empty table", schema: "main"},
		{name: "invalid filter", schema: "main", table: "users", filter: []byte(`{invalid json}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeTicket(tt.schema, tt.table, tt.filter); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeTicketErrors(t *testing.T) {
	tests := []struct {
		name   string
		ticket string
	}{
		{"empty ticket", ""},
		{"invalid json", "{not json"},
		{"missing schema", `{"table":"users"}`},
		{"missing table", `{"schema":"main"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTicket([]byte(tt.ticket)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTicketNullFilter(t *testing.T) {
	td, err := DecodeTicket([]byte(`{"schema":"main","table":"users","filter":null}`))
	if err != nil {
		t.Fatalf("DecodeTicket() error = %v", err)
	}
	fp, err := td.FilterPushdown()
	if err != nil {
		t.Fatalf("FilterPushdown() error = %v", err)
	}
	if len(fp.Filters) != 0 {
		t.Errorf("expected no filters, got %d", len(fp.Filters))
	}

	opts := td.ToScanOptions(fp)
	if opts.Filter != fp || opts.Columns != nil {
		t.Errorf("unexpected scan options %+v", opts)
	}
}
