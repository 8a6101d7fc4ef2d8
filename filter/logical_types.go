package filter

import (
	"time"
)

// LogicalTypeID identifies the engine type of a filter constant.
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
	TypeIDFloat        LogicalTypeID = "FLOAT"
	TypeIDDouble       LogicalTypeID = "DOUBLE"
	TypeIDDecimal      LogicalTypeID = "DECIMAL"
	TypeIDChar         LogicalTypeID = "CHAR"
	TypeIDVarchar      LogicalTypeID = "VARCHAR"
	TypeIDBlob         LogicalTypeID = "BLOB"
	TypeIDDate         LogicalTypeID = "DATE"
	TypeIDTime         LogicalTypeID = "TIME"
	TypeIDTimestamp    LogicalTypeID = "TIMESTAMP"
	TypeIDTimestampTZ  LogicalTypeID = "TIMESTAMP_TZ"
	TypeIDTimestampSec LogicalTypeID = "TIMESTAMP_SEC"
	TypeIDTimestampMs  LogicalTypeID = "TIMESTAMP_MS"
	TypeIDTimestampNs  LogicalTypeID = "TIMESTAMP_NS"
	TypeIDInterval     LogicalTypeID = "INTERVAL"
	TypeIDUUID         LogicalTypeID = "UUID"
	TypeIDList         LogicalTypeID = "LIST"
	TypeIDStruct       LogicalTypeID = "STRUCT"
	TypeIDMap          LogicalTypeID = "MAP"
	TypeIDArray        LogicalTypeID = "ARRAY"
)

// typeIDMapping maps type aliases to canonical ids. Filter sets decoded from
// JSON may carry either the short or the full SQL spelling.
var typeIDMapping = map[LogicalTypeID]LogicalTypeID{
	"TIMESTAMP WITH TIME ZONE":    TypeIDTimestampTZ,
	"TIMESTAMPTZ":                 TypeIDTimestampTZ,
	"TIMESTAMP WITHOUT TIME ZONE": TypeIDTimestamp,
	"TIMESTAMP_S":                 TypeIDTimestampSec,
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
	"FLOAT8":                      TypeIDDouble,
	"REAL":                        TypeIDFloat,
	"STRING":                      TypeIDVarchar,
	"TEXT":                        TypeIDVarchar,
	"BOOL":                        TypeIDBoolean,
}

// Normalize returns the canonical LogicalTypeID for the given type ID.
func (t LogicalTypeID) Normalize() LogicalTypeID {
	if mapped, ok := typeIDMapping[t]; ok {
		return mapped
	}
	return t
}

// IsSigned returns true if the type is a signed integer type.
func (t LogicalTypeID) IsSigned() bool {
	switch t {
	case TypeIDTinyInt, TypeIDSmallInt, TypeIDInteger, TypeIDBigInt:
		return true
	}
	return false
}

// IsUnsigned returns true if the type is an unsigned integer type.
func (t LogicalTypeID) IsUnsigned() bool {
	switch t {
	case TypeIDUTinyInt, TypeIDUSmallInt, TypeIDUInteger, TypeIDUBigInt:
		return true
	}
	return false
}

// IsTimestamp returns true for every timestamp precision, with or without zone.
func (t LogicalTypeID) IsTimestamp() bool {
	switch t {
	case TypeIDTimestamp, TypeIDTimestampTZ, TypeIDTimestampSec, TypeIDTimestampMs, TypeIDTimestampNs:
		return true
	}
	return false
}

// IsComplex returns true if the type is a nested type.
func (t LogicalTypeID) IsComplex() bool {
	switch t {
	case TypeIDList, TypeIDStruct, TypeIDMap, TypeIDArray:
		return true
	}
	return false
}

// Value is a typed filter constant.
//
// Data holds the Go representation for the type:
//   - BOOLEAN: bool
//   - signed integers: int64 (int, int32 accepted)
//   - unsigned integers: uint64 (uint, uint32 accepted)
//   - FLOAT, DOUBLE: float64 or float32
//   - DECIMAL: string in canonical form ("12.50")
//   - CHAR, VARCHAR, UUID: string
//   - DATE, TIME, TIMESTAMP*: time.Time
type Value struct {
	Type   LogicalTypeID
	IsNull bool
	Data   any
}

// Null returns a NULL constant of the given type.
func Null(t LogicalTypeID) Value {
	return Value{Type: t, IsNull: true}
}

// Bool returns a BOOLEAN constant.
func Bool(b bool) Value {
	return Value{Type: TypeIDBoolean, Data: b}
}

// Int returns a BIGINT constant.
func Int(i int64) Value {
	return Value{Type: TypeIDBigInt, Data: i}
}

// Integer returns an INTEGER constant.
func Integer(i int32) Value {
	return Value{Type: TypeIDInteger, Data: int64(i)}
}

// Uint returns a UBIGINT constant.
func Uint(u uint64) Value {
	return Value{Type: TypeIDUBigInt, Data: u}
}

// Double returns a DOUBLE constant.
func Double(f float64) Value {
	return Value{Type: TypeIDDouble, Data: f}
}

// Decimal returns a DECIMAL constant from its canonical string form.
func Decimal(s string) Value {
	return Value{Type: TypeIDDecimal, Data: s}
}

// String returns a VARCHAR constant.
func String(s string) Value {
	return Value{Type: TypeIDVarchar, Data: s}
}

// Date returns a DATE constant. Only the calendar date of t is used.
func Date(t time.Time) Value {
	return Value{Type: TypeIDDate, Data: t}
}

// Time returns a TIME constant. Only the wall clock of t is used.
func Time(t time.Time) Value {
	return Value{Type: TypeIDTime, Data: t}
}

// Timestamp returns a TIMESTAMP constant.
func Timestamp(t time.Time) Value {
	return Value{Type: TypeIDTimestamp, Data: t}
}

// TimestampTZ returns a TIMESTAMP WITH TIME ZONE constant.
func TimestampTZ(t time.Time) Value {
	return Value{Type: TypeIDTimestampTZ, Data: t}
}

// Blob returns a BLOB constant. Blobs are never pushed down.
func Blob(b []byte) Value {
	return Value{Type: TypeIDBlob, Data: b}
}
