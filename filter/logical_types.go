package filter

// LogicalTypeID identifies DuckDB data types.
type LogicalTypeID string

const (
	TypeIDInvalid      LogicalTypeID = "INVALID"
	TypeIDSQLNull      LogicalTypeID = "SQLNULL"
	TypeIDBoolean      LogicalTypeID = "BOOLEAN"
	TypeIDTinyInt      LogicalTypeID = "TINYINT"
	TypeIDSmallInt     LogicalTypeID = "SMALLINT"
	TypeIDInteger      LogicalTypeID = "INTEGER"
	TypeIDBigInt       LogicalTypeID = "BIGINT"
	TypeIDUTinyInt     LogicalTypeID = "UTINYINT"
	TypeIDUSmallInt    LogicalTypeID = "USMALLINT"
	TypeIDUInteger     LogicalTypeID = "UINTEGER"
	TypeIDUBigInt      LogicalTypeID = "UBIGINT"
	TypeIDHugeInt      LogicalTypeID = "HUGEINT"
	TypeIDFloat        LogicalTypeID = "FLOAT"
	TypeIDDouble       LogicalTypeID = "DOUBLE"
	TypeIDDecimal      LogicalTypeID = "DECIMAL"
	TypeIDChar         LogicalTypeID = "CHAR"
	TypeIDVarchar      LogicalTypeID = "VARCHAR"
	TypeIDBlob         LogicalTypeID = "BLOB"
	TypeIDDate         LogicalTypeID = "DATE"
	TypeIDTime         LogicalTypeID = "TIME"
	TypeIDTimeTZ       LogicalTypeID = "TIME_TZ"
	TypeIDTimestampSec LogicalTypeID = "TIMESTAMP_SEC"
	TypeIDTimestampMs  LogicalTypeID = "TIMESTAMP_MS"
	TypeIDTimestamp    LogicalTypeID = "TIMESTAMP"
	TypeIDTimestampNs  LogicalTypeID = "TIMESTAMP_NS"
	TypeIDTimestampTZ  LogicalTypeID = "TIMESTAMP_TZ"
	TypeIDInterval     LogicalTypeID = "INTERVAL"
	TypeIDUUID         LogicalTypeID = "UUID"
	TypeIDList         LogicalTypeID = "LIST"
	TypeIDStruct       LogicalTypeID = "STRUCT"
	TypeIDMap          LogicalTypeID = "MAP"
)

// typeIDAliases maps DuckDB full type names and aliases to normalized names.
var typeIDAliases = map[LogicalTypeID]LogicalTypeID{
	"TIMESTAMP WITH TIME ZONE":    TypeIDTimestampTZ,
	"TIMESTAMPTZ":                 TypeIDTimestampTZ,
	"TIME WITH TIME ZONE":         TypeIDTimeTZ,
	"TIMETZ":                      TypeIDTimeTZ,
	"TIMESTAMP_S":                 TypeIDTimestampSec,
	"TIMESTAMP WITHOUT TIME ZONE": TypeIDTimestamp,
	"INT":                         TypeIDInteger,
	"INT4":                        TypeIDInteger,
	"INT8":                        TypeIDBigInt,
	"INT2":                        TypeIDSmallInt,
	"INT1":                        TypeIDTinyInt,
	"UINT8":                       TypeIDUBigInt,
	"UINT4":                       TypeIDUInteger,
	"UINT2":                       TypeIDUSmallInt,
	"UINT1":                       TypeIDUTinyInt,
	"FLOAT4":                      TypeIDFloat,
	"REAL":                        TypeIDFloat,
	"FLOAT8":                      TypeIDDouble,
	"STRING":                      TypeIDVarchar,
	"TEXT":                        TypeIDVarchar,
	"BOOL":                        TypeIDBoolean,
}

// Normalize returns the canonical LogicalTypeID for DuckDB aliases and full SQL names.
func (t LogicalTypeID) Normalize() LogicalTypeID {
	if mapped, ok := typeIDAliases[t]; ok {
		return mapped
	}
	return t
}

// LogicalType represents DuckDB logical types with optional extra type information.
type LogicalType struct {
	ID LogicalTypeID `json:"id"`

	// Decimal is set for DECIMAL types.
	Decimal *DecimalTypeInfo `json:"-"`
}

// DecimalTypeInfo contains precision and scale for DECIMAL types.
type DecimalTypeInfo struct {
	Width int `json:"width"`
	Scale int `json:"scale"`
}

// Value represents a typed constant value.
//
// Data holds bool, int64, uint64, float64, string, []byte, Interval or
// []Value depending on Type. Temporal values are kept in DuckDB's integer
// encoding: days for DATE, microseconds for TIME and TIMESTAMP (or the
// unit of the TIMESTAMP_* variant).
type Value struct {
	Type   LogicalType
	IsNull bool
	Data   any
}

// Interval represents a DuckDB interval.
type Interval struct {
	Months int32 `json:"months"`
	Days   int32 `json:"days"`
	Micros int64 `json:"micros"`
}

// IsInteger returns true if the type is an integer type.
func (t LogicalTypeID) IsInteger() bool {
	switch t {
	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt,
		TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt, TypeIDHugeInt:
		return true
	}
	return false
}

// IsNumeric returns true if the type is a numeric type.
func (t LogicalTypeID) IsNumeric() bool {
	switch t {
	case TypeIDFloat, TypeIDDouble, TypeIDDecimal:
		return true
	}
	return t.IsInteger()
}

// IsTemporal returns true if the type is a date/time type.
func (t LogicalTypeID) IsTemporal() bool {
	switch t {
	case TypeIDDate, TypeIDTime, TypeIDTimeTZ,
		TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampMs, TypeIDTimestampNs, TypeIDTimestampSec,
		TypeIDInterval:
		return true
	}
	return false
}
