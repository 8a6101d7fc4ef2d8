package filter

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatValue formats v as a SQL literal for the remote source.
//
// ok is false when v is valid but has no literal form the remote accepts
// (NaN, ±Inf); the filter is then applied locally. An error means v can never
// be pushed (BLOB, INTERVAL, nested types) or its Data does not match its
// type; both are invariant violations.
//
// Times and timestamps are formatted to whole seconds, as 'HH:MM:SS' and
// 'YYYY-MM-DD HH:MM:SS'. A constant with a fractional second has no literal
// here (ok is false): a truncated bound would make "<", "=" or IN reject
// rows the engine keeps. TIMESTAMP WITH TIME ZONE constants are converted to
// UTC and carry an explicit +00:00 offset, so the remote session time zone
// does not shift them.
func FormatValue(v Value) (lit string, ok bool, err error) {
	if v.IsNull {
		return "NULL", true, nil
	}

	t := v.Type.Normalize()
	switch {
	case t == TypeIDBoolean:
		b, isBool := v.Data.(bool)
		if !isBool {
			return "", false, dataMismatch(v)
		}
		if b {
			return "TRUE", true, nil
		}
		return "FALSE", true, nil
	case t.IsSigned():
		return formatSigned(v)
	case t.IsUnsigned():
		return formatUnsigned(v)
	case t == TypeIDFloat || t == TypeIDDouble:
		return formatFloat(v)
	case t == TypeIDDecimal:
		return formatDecimal(v)
	case t == TypeIDVarchar || t == TypeIDChar || t == TypeIDUUID:
		s, isString := v.Data.(string)
		if !isString {
			return "", false, dataMismatch(v)
		}
		return QuoteLiteral(s), true, nil
	case t == TypeIDDate:
		tm, isTime := v.Data.(time.Time)
		if !isTime {
			return "", false, dataMismatch(v)
		}
		return "'" + tm.Format(time.DateOnly) + "'", true, nil
	case t == TypeIDTime:
		tm, isTime := v.Data.(time.Time)
		if !isTime {
			return "", false, dataMismatch(v)
		}
		if tm.Nanosecond() != 0 {
			return "", false, nil
		}
		return "'" + tm.Format(time.TimeOnly) + "'", true, nil
	case t.IsTimestamp():
		tm, isTime := v.Data.(time.Time)
		if !isTime {
			return "", false, dataMismatch(v)
		}
		if tm.Nanosecond() != 0 {
			return "", false, nil
		}
		if t == TypeIDTimestampTZ {
			return "'" + tm.UTC().Format(time.DateTime) + "+00:00'", true, nil
		}
		return "'" + tm.Format(time.DateTime) + "'", true, nil
	default:
		return "", false, &InvariantError{
			Kind:   InvariantLiteralType,
			Detail: "cannot push down filter on unsupported type: " + string(v.Type),
		}
	}
}

func formatSigned(v Value) (string, bool, error) {
	switch d := v.Data.(type) {
	case int64:
		return strconv.FormatInt(d, 10), true, nil
	case int:
		return strconv.FormatInt(int64(d), 10), true, nil
	case int32:
		return strconv.FormatInt(int64(d), 10), true, nil
	case int16:
		return strconv.FormatInt(int64(d), 10), true, nil
	case int8:
		return strconv.FormatInt(int64(d), 10), true, nil
	default:
		return "", false, dataMismatch(v)
	}
}

func formatUnsigned(v Value) (string, bool, error) {
	switch d := v.Data.(type) {
	case uint64:
		return strconv.FormatUint(d, 10), true, nil
	case uint:
		return strconv.FormatUint(uint64(d), 10), true, nil
	case uint32:
		return strconv.FormatUint(uint64(d), 10), true, nil
	case uint16:
		return strconv.FormatUint(uint64(d), 10), true, nil
	case uint8:
		return strconv.FormatUint(uint64(d), 10), true, nil
	default:
		return "", false, dataMismatch(v)
	}
}

func formatFloat(v Value) (string, bool, error) {
	var f float64
	bits := 64
	switch d := v.Data.(type) {
	case float64:
		f = d
	case float32:
		f, bits = float64(d), 32
	default:
		return "", false, dataMismatch(v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false, nil
	}
	return strconv.FormatFloat(f, 'g', -1, bits), true, nil
}

func formatDecimal(v Value) (string, bool, error) {
	switch d := v.Data.(type) {
	case string:
		if !isCanonicalDecimal(d) {
			return "", false, &InvariantError{
				Kind:   InvariantLiteralFormat,
				Detail: fmt.Sprintf("malformed DECIMAL constant %q", d),
			}
		}
		return d, true, nil
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return "", false, nil
		}
		return strconv.FormatFloat(d, 'f', -1, 64), true, nil
	default:
		return "", false, dataMismatch(v)
	}
}

func dataMismatch(v Value) error {
	return &InvariantError{
		Kind:   InvariantLiteralFormat,
		Detail: fmt.Sprintf("%s constant holds %T", v.Type, v.Data),
	}
}
