package sqldb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// schemaOf maps driver column types to an Arrow schema. Every field is
// nullable.
func schemaOf(types []*sql.ColumnType) *arrow.Schema {
	fields := make([]arrow.Field, len(types))
	for i, ct := range types {
		fields[i] = arrow.Field{
			Name:     ct.Name(),
			Type:     arrowType(ct.DatabaseTypeName()),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// arrowType maps a DuckDB or PostgreSQL type name.
func arrowType(name string) arrow.DataType {
	name = strings.ToUpper(name)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "BOOLEAN", "BOOL":
		return arrow.FixedWidthTypes.Boolean
	case "TINYINT", "INT1":
		return arrow.PrimitiveTypes.Int8
	case "SMALLINT", "INT2":
		return arrow.PrimitiveTypes.Int16
	case "INTEGER", "INT", "INT4":
		return arrow.PrimitiveTypes.Int32
	case "BIGINT", "INT8":
		return arrow.PrimitiveTypes.Int64
	case "UTINYINT":
		return arrow.PrimitiveTypes.Uint8
	case "USMALLINT":
		return arrow.PrimitiveTypes.Uint16
	case "UINTEGER":
		return arrow.PrimitiveTypes.Uint32
	case "UBIGINT":
		return arrow.PrimitiveTypes.Uint64
	case "FLOAT", "REAL", "FLOAT4":
		return arrow.PrimitiveTypes.Float32
	case "DOUBLE", "FLOAT8", "DOUBLE PRECISION":
		return arrow.PrimitiveTypes.Float64
	case "DATE":
		return arrow.FixedWidthTypes.Date32
	case "TIME":
		return arrow.FixedWidthTypes.Time64us
	case "TIMESTAMP":
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	case "BLOB", "BYTEA":
		return arrow.BinaryTypes.Binary
	}
	return arrow.BinaryTypes.String
}

// appendValue appends a scanned driver value to b. A nil value is appended
// as NULL.
func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return mismatch(v, "boolean")
		}
		b.Append(x)
	case *array.Int8Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		b.Append(int8(x))
	case *array.Int16Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		b.Append(int16(x))
	case *array.Int32Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		b.Append(int32(x))
	case *array.Int64Builder:
		x, err := toInt(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Uint8Builder:
		x, err := toUint(v)
		if err != nil {
			return err
		}
		b.Append(uint8(x))
	case *array.Uint16Builder:
		x, err := toUint(v)
		if err != nil {
			return err
		}
		b.Append(uint16(x))
	case *array.Uint32Builder:
		x, err := toUint(v)
		if err != nil {
			return err
		}
		b.Append(uint32(x))
	case *array.Uint64Builder:
		x, err := toUint(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Float32Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(float32(x))
	case *array.Float64Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "date")
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.Time64Builder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "time")
		}
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		b.Append(arrow.Time64(t.Sub(midnight).Microseconds()))
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return mismatch(v, "timestamp")
		}
		ts, err := arrow.TimestampFromTime(t.UTC(), arrow.Microsecond)
		if err != nil {
			return err
		}
		b.Append(ts)
	case *array.BinaryBuilder:
		switch x := v.(type) {
		case []byte:
			b.Append(x)
		case string:
			b.AppendString(x)
		default:
			return mismatch(v, "binary")
		}
	case *array.StringBuilder:
		switch x := v.(type) {
		case string:
			b.Append(x)
		case []byte:
			b.BinaryBuilder.Append(x)
		case fmt.Stringer:
			b.Append(x.String())
		default:
			b.Append(fmt.Sprint(x))
		}
	default:
		return fmt.Errorf("sqldb: unsupported arrow builder %T", b)
	}
	return nil
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	}
	return 0, mismatch(v, "integer")
}

func toUint(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case int64:
		if x >= 0 {
			return uint64(x), nil
		}
	}
	return 0, mismatch(v, "unsigned integer")
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, mismatch(v, "float")
}

func mismatch(v any, want string) error {
	return fmt.Errorf("sqldb: cannot convert %T to %s", v, want)
}
