// Package enforce coerces raw column values to the runtime representation a
// compiled predicate expects for the column's declared Arrow type.
package enforce

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/airport-predicate/filter"
	"github.com/hugr-lab/airport-predicate/geometry"
)

// Kind is the runtime representation of a value inside a predicate.
type Kind uint8

const (
	// KindAny values are passed through unchanged.
	KindAny Kind = iota
	KindNull
	KindBool
	KindInt      // int64
	KindFloat    // float64
	KindString   // string
	KindBytes    // []byte
	KindTime     // time.Time
	KindDuration // time.Duration
	KindGeometry // orb.Geometry
)

var kindNames = [...]string{
	KindAny:      "ANY",
	KindNull:     "NULL",
	KindBool:     "BOOLEAN",
	KindInt:      "BIGINT",
	KindFloat:    "DOUBLE",
	KindString:   "VARCHAR",
	KindBytes:    "BLOB",
	KindTime:     "TIMESTAMP",
	KindDuration: "INTERVAL",
	KindGeometry: "GEOMETRY",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Numeric reports whether k is an integer or floating point kind.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Target is the coercion target for one value.
type Target struct {
	Kind Kind
	// Min and Max bound KindInt values. Both zero means the full int64 range.
	Min, Max int64
	// Type is the declared Arrow type, used to decode Arrow scalar encodings
	// (timestamps, decimals) and in error messages. May be nil.
	Type arrow.DataType
}

func (t Target) String() string {
	if t.Type != nil {
		return t.Type.String()
	}
	return t.Kind.String()
}

func (t Target) bounded() bool { return t.Min != 0 || t.Max != 0 }

func intTarget(dt arrow.DataType, lo, hi int64) Target {
	return Target{Kind: KindInt, Min: lo, Max: hi, Type: dt}
}

// TargetOf returns the coercion target for a column of type dt. Nested
// types (lists, structs, maps) map to KindAny.
func TargetOf(dt arrow.DataType) Target {
	if dt == nil {
		return Target{Kind: KindAny}
	}
	switch dt.ID() {
	case arrow.NULL:
		return Target{Kind: KindNull, Type: dt}
	case arrow.BOOL:
		return Target{Kind: KindBool, Type: dt}
	case arrow.INT8:
		return intTarget(dt, math.MinInt8, math.MaxInt8)
	case arrow.INT16:
		return intTarget(dt, math.MinInt16, math.MaxInt16)
	case arrow.INT32:
		return intTarget(dt, math.MinInt32, math.MaxInt32)
	case arrow.INT64:
		return intTarget(dt, math.MinInt64, math.MaxInt64)
	case arrow.UINT8:
		return intTarget(dt, 0, math.MaxUint8)
	case arrow.UINT16:
		return intTarget(dt, 0, math.MaxUint16)
	case arrow.UINT32:
		return intTarget(dt, 0, math.MaxUint32)
	case arrow.UINT64:
		return intTarget(dt, 0, math.MaxInt64)
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return Target{Kind: KindFloat, Type: dt}
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return Target{Kind: KindString, Type: dt}
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW, arrow.FIXED_SIZE_BINARY:
		return Target{Kind: KindBytes, Type: dt}
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return Target{Kind: KindTime, Type: dt}
	case arrow.TIME32, arrow.TIME64, arrow.DURATION:
		return Target{Kind: KindDuration, Type: dt}
	case arrow.EXTENSION:
		ext := dt.(arrow.ExtensionType)
		switch {
		case geometry.Is(dt):
			return Target{Kind: KindGeometry, Type: dt}
		case ext.ExtensionName() == "arrow.uuid":
			return Target{Kind: KindString, Type: dt}
		}
		t := TargetOf(ext.StorageType())
		t.Type = dt
		return t
	}
	return Target{Kind: KindAny, Type: dt}
}

// ArrowType maps a DuckDB logical type to the Arrow type DuckDB uses for it
// on the wire. HUGEINT maps to INT64 and is limited to its range. Returns
// nil for types without an Arrow mapping.
func ArrowType(lt filter.LogicalType) arrow.DataType {
	switch lt.ID.Normalize() {
	case filter.TypeIDSQLNull:
		return arrow.Null
	case filter.TypeIDBoolean:
		return arrow.FixedWidthTypes.Boolean
	case filter.TypeIDTinyInt:
		return arrow.PrimitiveTypes.Int8
	case filter.TypeIDSmallInt:
		return arrow.PrimitiveTypes.Int16
	case filter.TypeIDInteger:
		return arrow.PrimitiveTypes.Int32
	case filter.TypeIDBigInt, filter.TypeIDHugeInt:
		return arrow.PrimitiveTypes.Int64
	case filter.TypeIDUTinyInt:
		return arrow.PrimitiveTypes.Uint8
	case filter.TypeIDUSmallInt:
		return arrow.PrimitiveTypes.Uint16
	case filter.TypeIDUInteger:
		return arrow.PrimitiveTypes.Uint32
	case filter.TypeIDUBigInt:
		return arrow.PrimitiveTypes.Uint64
	case filter.TypeIDFloat:
		return arrow.PrimitiveTypes.Float32
	case filter.TypeIDDouble:
		return arrow.PrimitiveTypes.Float64
	case filter.TypeIDDecimal:
		if lt.Decimal != nil {
			return &arrow.Decimal128Type{Precision: int32(lt.Decimal.Width), Scale: int32(lt.Decimal.Scale)}
		}
		return arrow.PrimitiveTypes.Float64
	case filter.TypeIDVarchar, filter.TypeIDChar, filter.TypeIDUUID:
		return arrow.BinaryTypes.String
	case filter.TypeIDBlob:
		return arrow.BinaryTypes.Binary
	case filter.TypeIDDate:
		return arrow.FixedWidthTypes.Date32
	case filter.TypeIDTime, filter.TypeIDTimeTZ:
		return arrow.FixedWidthTypes.Time64us
	case filter.TypeIDTimestampSec:
		return arrow.FixedWidthTypes.Timestamp_s
	case filter.TypeIDTimestampMs:
		return arrow.FixedWidthTypes.Timestamp_ms
	case filter.TypeIDTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case filter.TypeIDTimestampNs:
		return arrow.FixedWidthTypes.Timestamp_ns
	case filter.TypeIDTimestampTZ:
		return arrow.FixedWidthTypes.Timestamp_us
	case filter.TypeIDInterval:
		return arrow.FixedWidthTypes.Duration_us
	}
	return nil
}

// LogicalTarget is TargetOf(ArrowType(lt)).
func LogicalTarget(lt filter.LogicalType) Target {
	return TargetOf(ArrowType(lt))
}
