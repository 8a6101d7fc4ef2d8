package filter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed is returned by Parse for filter set JSON that is not
// well-formed. Parse never returns a tree that violates a compiler
// invariant: empty IN lists and out-of-range column indexes are rejected here.
var ErrMalformed = errors.New("malformed filter set")

// FilterSet is a decoded filter set: the projected columns and the filters
// addressed by index into them.
type FilterSet struct {
	Columns Columns
	Filters Set
}

// Parse decodes a filter set from JSON:
//
//	{
//	  "columns": ["id", "name"],
//	  "filters": [
//	    {"column_index": 0, "filter": {
//	      "filter_type": "CONSTANT_COMPARISON",
//	      "comparison_type": "COMPARE_GREATERTHAN",
//	      "constant": {"type": "INTEGER", "value": 100}}}
//	  ]
//	}
//
// Several entries on the same column index are combined with AND.
// Empty input decodes to an empty set.
func Parse(data []byte) (*FilterSet, error) {
	fs := &FilterSet{Filters: Set{}}
	if len(data) == 0 {
		return fs, nil
	}

	var raw rawFilterSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	fs.Columns = raw.Columns

	for i, entry := range raw.Filters {
		if entry.ColumnIndex < 0 || entry.ColumnIndex >= len(fs.Columns) {
			return nil, fmt.Errorf("%w: filter %d: column index %d out of range (%d columns)",
				ErrMalformed, i, entry.ColumnIndex, len(fs.Columns))
		}
		f, err := parseFilter(entry.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %d: %v", ErrMalformed, i, err)
		}
		if prev, ok := fs.Filters[entry.ColumnIndex]; ok {
			f = &And{Children: []Filter{prev, f}}
		}
		fs.Filters[entry.ColumnIndex] = f
	}

	return fs, nil
}

type rawFilterSet struct {
	Columns []string         `json:"columns"`
	Filters []rawFilterEntry `json:"filters"`
}

type rawFilterEntry struct {
	ColumnIndex int             `json:"column_index"`
	Filter      json.RawMessage `json:"filter"`
}

// rawFilter holds the fields of every filter kind; filter_type selects
// which ones are read.
type rawFilter struct {
	FilterType     string            `json:"filter_type"`
	ComparisonType string            `json:"comparison_type"`
	Constant       json.RawMessage   `json:"constant"`
	Values         []json.RawMessage `json:"values"`
	ChildFilters   []json.RawMessage `json:"child_filters"`
	ChildFilter    json.RawMessage   `json:"child_filter"`
}

func parseFilter(data json.RawMessage) (Filter, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, errors.New("missing filter")
	}

	var raw rawFilter
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	switch FilterType(raw.FilterType) {
	case TypeConstantComparison:
		v, err := parseValue(raw.Constant)
		if err != nil {
			return nil, fmt.Errorf("invalid constant: %w", err)
		}
		return &ConstantComparison{Op: ComparisonType(raw.ComparisonType), Value: v}, nil
	case TypeIsNull:
		return &IsNull{}, nil
	case TypeIsNotNull:
		return &IsNotNull{}, nil
	case TypeInSet:
		if len(raw.Values) == 0 {
			return nil, errors.New("IN filter without values")
		}
		values := make([]Value, 0, len(raw.Values))
		for i, rv := range raw.Values {
			v, err := parseValue(rv)
			if err != nil {
				return nil, fmt.Errorf("invalid IN value %d: %w", i, err)
			}
			values = append(values, v)
		}
		return &InSet{Values: values}, nil
	case TypeConjunctionAnd, TypeConjunctionOr:
		if len(raw.ChildFilters) == 0 {
			return nil, fmt.Errorf("%s without children", raw.FilterType)
		}
		children := make([]Filter, 0, len(raw.ChildFilters))
		for i, rc := range raw.ChildFilters {
			child, err := parseFilter(rc)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, child)
		}
		if FilterType(raw.FilterType) == TypeConjunctionAnd {
			return &And{Children: children}, nil
		}
		return &Or{Children: children}, nil
	case TypeOptional:
		child, err := parseFilter(raw.ChildFilter)
		if err != nil {
			return nil, fmt.Errorf("optional child: %w", err)
		}
		return &Optional{Child: child}, nil
	case TypeDeferred:
		d := &Deferred{}
		if len(raw.ChildFilter) > 0 && string(raw.ChildFilter) != "null" {
			child, err := parseFilter(raw.ChildFilter)
			if err != nil {
				return nil, fmt.Errorf("dynamic child: %w", err)
			}
			d.Resolve(child)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", raw.FilterType)
	}
}

// rawValue accepts "type" either as a plain id or as {"id": ...}.
type rawValue struct {
	Type   json.RawMessage `json:"type"`
	IsNull bool            `json:"is_null"`
	Value  json.RawMessage `json:"value"`
}

type base64String struct {
	Base64 string `json:"base64"`
}

func parseValue(data json.RawMessage) (Value, error) {
	if len(data) == 0 || string(data) == "null" {
		return Value{}, errors.New("missing value")
	}

	var raw rawValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("invalid value: %w", err)
	}

	typeID, err := parseTypeID(raw.Type)
	if err != nil {
		return Value{}, err
	}

	v := Value{Type: typeID, IsNull: raw.IsNull}
	if raw.IsNull || len(raw.Value) == 0 || string(raw.Value) == "null" {
		v.IsNull = true
		return v, nil
	}

	v.Data, err = parseValueData(raw.Value, typeID.Normalize())
	if err != nil {
		return Value{}, fmt.Errorf("invalid %s value: %w", typeID, err)
	}
	return v, nil
}

func parseTypeID(data json.RawMessage) (LogicalTypeID, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", errors.New("value without type")
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return LogicalTypeID(s), nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("invalid value type: %w", err)
	}
	if obj.ID == "" {
		return "", errors.New("value type without id")
	}
	return LogicalTypeID(obj.ID), nil
}

// parseValueData decodes the value for the given canonical type. Temporal
// values are accepted as strings or as engine integers: days since epoch for
// DATE, microseconds since midnight for TIME and the precision of the type
// for timestamps.
func parseValueData(data json.RawMessage, t LogicalTypeID) (any, error) {
	switch {
	case t == TypeIDBoolean:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	case t.IsSigned():
		var i int64
		if err := json.Unmarshal(data, &i); err != nil {
			return nil, err
		}
		return i, nil
	case t.IsUnsigned():
		var u uint64
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return u, nil
	case t == TypeIDFloat || t == TypeIDDouble:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case t == TypeIDDecimal:
		// Decimal can be string or number
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return s, nil
		}
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case t == TypeIDVarchar || t == TypeIDChar || t == TypeIDUUID:
		var b64 base64String
		if err := json.Unmarshal(data, &b64); err == nil && b64.Base64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(b64.Base64)
			if err != nil {
				return nil, fmt.Errorf("invalid base64: %w", err)
			}
			return string(decoded), nil
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	case t == TypeIDBlob:
		var b64 base64String
		if err := json.Unmarshal(data, &b64); err == nil && b64.Base64 != "" {
			return base64.StdEncoding.DecodeString(b64.Base64)
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	case t == TypeIDDate:
		return parseTemporal(data, time.DateOnly, func(n int64) time.Time {
			return time.Unix(n*86400, 0).UTC()
		})
	case t == TypeIDTime:
		return parseTemporal(data, time.TimeOnly, func(n int64) time.Time {
			return time.UnixMicro(n).UTC()
		})
	case t.IsTimestamp():
		return parseTemporal(data, time.DateTime, timestampFromInt(t))
	default:
		// Kept as generic JSON; the compiler rejects these types.
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func timestampFromInt(t LogicalTypeID) func(int64) time.Time {
	switch t {
	case TypeIDTimestampSec:
		return func(n int64) time.Time { return time.Unix(n, 0).UTC() }
	case TypeIDTimestampMs:
		return func(n int64) time.Time { return time.UnixMilli(n).UTC() }
	case TypeIDTimestampNs:
		return func(n int64) time.Time { return time.Unix(0, n).UTC() }
	default:
		return func(n int64) time.Time { return time.UnixMicro(n).UTC() }
	}
}

func parseTemporal(data json.RawMessage, layout string, fromInt func(int64) time.Time) (time.Time, error) {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		return fromInt(n), nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, err
	}
	if tm, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return tm, nil
	}
	return time.Parse(layout, s)
}
