package enforce

import (
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/geometry"
)

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "price", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}, Nullable: true},
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ms, Nullable: true},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: "at", Type: arrow.FixedWidthTypes.Time64us, Nullable: true},
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "small", Type: arrow.PrimitiveTypes.Uint8, Nullable: true},
		geometry.NewField("geom", true, 4326),
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
	}, nil)
}

func TestTargetOf(t *testing.T) {
	e := New(testSchema())
	want := []Kind{KindInt, KindString, KindFloat, KindTime, KindTime, KindDuration, KindBool, KindInt, KindGeometry, KindAny}
	for i, k := range want {
		if got := e.Target(i).Kind; got != k {
			t.Errorf("column %d: expected %s, got %s", i, k, got)
		}
	}
}

func TestEnforce(t *testing.T) {
	e := New(testSchema())
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	squareWKB, err := geometry.Encode(square)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name string
		col  int
		in   any
		want any
	}{
		{"null passes through", 0, nil, nil},
		{"int32 widens", 0, int32(7), int64(7)},
		{"text to int", 0, "10", int64(10)},
		{"text to int with spaces", 0, " 42 ", int64(42)},
		{"integral float to int", 0, 3.0, int64(3)},
		{"int to string", 1, int64(5), "5"},
		{"bytes to string", 1, []byte("abc"), "abc"},
		{"decimal scaled", 2, decimal128.FromI64(1250), 12.5},
		{"text to decimal", 2, "9.5", 9.5},
		{"arrow timestamp", 3, arrow.Timestamp(ts.UnixMilli()), ts},
		{"text timestamp", 3, "2024-03-01 12:00:00", ts},
		{"date32", 4, arrow.Date32(19783), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"text date", 4, "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"time64", 5, arrow.Time64(90 * 1e6), 90 * time.Second},
		{"text time", 5, "01:30:00", 90 * time.Minute},
		{"text bool", 6, "TRUE", true},
		{"uint8 in range", 7, uint8(200), int64(200)},
		{"list passes through", 9, []string{"a"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Enforce(tt.col, tt.in)
			if err != nil {
				t.Fatalf("Enforce failed: %v", err)
			}
			if tt.col == 9 {
				if _, ok := got.([]string); !ok {
					t.Errorf("expected pass-through value, got %T", got)
				}
				return
			}
			if gt, ok := got.(time.Time); ok {
				if !gt.Equal(tt.want.(time.Time)) {
					t.Errorf("expected %v, got %v", tt.want, gt)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %T(%v), got %T(%v)", tt.want, tt.want, got, got)
			}
		})
	}

	t.Run("wkb geometry", func(t *testing.T) {
		got, err := e.Enforce(8, squareWKB)
		if err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}
		if _, ok := got.(orb.Polygon); !ok {
			t.Errorf("expected orb.Polygon, got %T", got)
		}
	})
	t.Run("wkt geometry", func(t *testing.T) {
		got, err := e.Enforce(8, "POINT (1 2)")
		if err != nil {
			t.Fatalf("Enforce failed: %v", err)
		}
		if got != (orb.Point{1, 2}) {
			t.Errorf("expected POINT(1 2), got %v", got)
		}
	})
}

func TestEnforceErrors(t *testing.T) {
	e := New(testSchema())
	tests := []struct {
		name string
		col  int
		in   any
	}{
		{"text not a number", 0, "ten"},
		{"int32 overflow", 0, int64(1) << 40},
		{"fractional to int", 0, 2.5},
		{"uint8 overflow", 7, int64(300)},
		{"negative unsigned", 7, int64(-1)},
		{"bad timestamp", 3, "yesterday"},
		{"bad bool", 6, "maybe"},
		{"string to geometry garbage", 8, "not wkt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Enforce(tt.col, tt.in)
			var ce *CoercionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CoercionError, got %v", err)
			}
			if ce.Index != tt.col || ce.Column != testSchema().Field(tt.col).Name {
				t.Errorf("unexpected column in error: %+v", ce)
			}
		})
	}

	if _, err := e.Enforce(99, int64(1)); err == nil {
		t.Error("expected out of range column error")
	}
}

func TestUint64Range(t *testing.T) {
	target := TargetOf(arrow.PrimitiveTypes.Uint64)
	if _, err := Coerce(uint64(1)<<63, target); err == nil {
		t.Error("expected uint64 above MaxInt64 to fail")
	}
	if got, err := Coerce(uint64(5), target); err != nil || got != int64(5) {
		t.Errorf("expected 5, got %v, %v", got, err)
	}
}

func TestUUIDToString(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	got, err := Coerce(id, Target{Kind: KindString})
	if err != nil || got != id.String() {
		t.Errorf("expected %s, got %v, %v", id, got, err)
	}
}

func TestCast(t *testing.T) {
	_, err := Cast("abc", LogicalTarget(filter.LogicalType{ID: filter.TypeIDInteger}))
	var ce *CoercionError
	if !errors.As(err, &ce) || ce.Index != -1 {
		t.Fatalf("expected cast CoercionError, got %v", err)
	}

	got, err := Cast("12", LogicalTarget(filter.LogicalType{ID: filter.TypeIDBigInt}))
	if err != nil || got != int64(12) {
		t.Errorf("expected 12, got %v, %v", got, err)
	}
}

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   filter.Value
		want any
	}{
		{"null", filter.Value{IsNull: true}, nil},
		{"int", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDInteger}, Data: int64(3)}, int64(3)},
		{"uint", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDUBigInt}, Data: uint64(3)}, int64(3)},
		{"date", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDDate}, Data: int64(1)}, time.Unix(86400, 0).UTC()},
		{"timestamp", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDTimestamp}, Data: ts.UnixMicro()}, ts},
		{"time", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDTime}, Data: int64(1e6)}, time.Second},
		{"interval", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDInterval}, Data: filter.Interval{Days: 1, Micros: 1}}, 24*time.Hour + time.Microsecond},
		{"string", filter.Value{Type: filter.LogicalType{ID: filter.TypeIDVarchar}, Data: "x"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Literal(tt.in)
			if err != nil {
				t.Fatalf("Literal failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := Literal(filter.Value{Type: filter.LogicalType{ID: filter.TypeIDUBigInt}, Data: uint64(1) << 63}); err == nil {
		t.Error("expected out of range unsigned constant to fail")
	}
}
