package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"
)

// unquoteLiteral parses a single-quoted SQL string literal at the start of s
// with '' and backslash escapes (\\, \xHH). It returns the decoded bytes and
// the number of bytes consumed.
func unquoteLiteral(s string) (string, int, error) {
	if len(s) == 0 || s[0] != '\'' {
		return "", 0, fmt.Errorf("literal must start with a quote: %q", s)
	}
	var out []byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				out = append(out, '\'')
				i++
				continue
			}
			return string(out), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling backslash")
			}
			switch s[i+1] {
			case '\\':
				out = append(out, '\\')
				i++
			case 'x':
				if i+3 >= len(s) {
					return "", 0, fmt.Errorf("short hex escape")
				}
				b, err := strconv.ParseUint(s[i+2:i+4], 16, 8)
				if err != nil {
					return "", 0, err
				}
				out = append(out, byte(b))
				i += 3
			default:
				return "", 0, fmt.Errorf("unknown escape \\%c", s[i+1])
			}
		default:
			if c < 0x20 || c > 0x7e {
				return "", 0, fmt.Errorf("raw non-printable byte 0x%02x", c)
			}
			out = append(out, c)
		}
	}
	return "", 0, fmt.Errorf("unterminated literal")
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", `'plain'`},
		{"", `''`},
		{"O'Brien", `'O''Brien'`},
		{`back\slash`, `'back\\slash'`},
		{"line\nbreak", `'line\x0Abreak'`},
		{"nul\x00byte", `'nul\x00byte'`},
		{"del\x7f", `'del\x7F'`},
		{"é", `'\xC3\xA9'`},
		{"'; DROP TABLE t; --", `'''; DROP TABLE t; --'`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteLiteral(tt.input)
			if result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestQuoteLiteralRoundTrip(t *testing.T) {
	inputs := []string{
		`it's a \ test`,
		`\'`,
		`''\\''`,
		"tab\tquote'end\\",
		"\x00\x01\x1f\x7f\xff",
		"混合 text with 'quotes'",
	}
	for b := 0; b < 256; b++ {
		inputs = append(inputs, string([]byte{byte(b), '\'', '\\'}))
	}

	for _, in := range inputs {
		lit := QuoteLiteral(in)
		out, n, err := unquoteLiteral(lit)
		if err != nil {
			t.Fatalf("unquote %s: %v", lit, err)
		}
		if n != len(lit) {
			t.Errorf("literal %s terminated early at %d", lit, n)
		}
		if out != in {
			t.Errorf("round trip mismatch: expected %q, got %q", in, out)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"id", `"id"`},
		{"user", `"user"`},
		{"Mixed Case", `"Mixed Case"`},
		{`a"b`, `"a""b"`},
		{`"`, `""""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	plus2 := time.FixedZone("UTC+2", 2*3600)

	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"true", Bool(true), "TRUE"},
		{"false", Bool(false), "FALSE"},
		{"bigint", Int(-42), "-42"},
		{"integer", Integer(7), "7"},
		{"tinyint", Value{Type: TypeIDTinyInt, Data: int8(-3)}, "-3"},
		{"ubigint max", Uint(math.MaxUint64), "18446744073709551615"},
		{"uinteger", Value{Type: TypeIDUInteger, Data: uint32(9)}, "9"},
		{"double", Double(1.5), "1.5"},
		{"double small", Double(0.1), "0.1"},
		{"float", Value{Type: TypeIDFloat, Data: float32(0.25)}, "0.25"},
		{"decimal", Decimal("12.50"), "12.50"},
		{"negative decimal", Decimal("-0.001"), "-0.001"},
		{"decimal from number", Value{Type: TypeIDDecimal, Data: 99.5}, "99.5"},
		{"varchar", String("hello"), "'hello'"},
		{"char", Value{Type: TypeIDChar, Data: "x"}, "'x'"},
		{"uuid", Value{Type: TypeIDUUID, Data: "0b7c0d8e-1f00-4c2a-9a7e-3d1f2b6f0a11"}, "'0b7c0d8e-1f00-4c2a-9a7e-3d1f2b6f0a11'"},
		{"alias type", Value{Type: "INT8", Data: int64(5)}, "5"},
		{"date", Date(ts), "'2024-01-15'"},
		{"time", Time(ts), "'10:30:45'"},
		{"timestamp", Timestamp(ts), "'2024-01-15 10:30:45'"},
		{"timestamp_ns", Value{Type: TypeIDTimestampNs, Data: ts}, "'2024-01-15 10:30:45'"},
		{"timestamptz to utc", TimestampTZ(time.Date(2024, 1, 15, 12, 0, 0, 0, plus2)), "'2024-01-15 10:00:00+00:00'"},
		{"date drops time of day", Date(ts.Add(123 * time.Millisecond)), "'2024-01-15'"},
		{"null", Null(TypeIDInteger), "NULL"},
		{"null blob", Null(TypeIDBlob), "NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok, err := FormatValue(tt.value)
			if err != nil {
				t.Fatalf("FormatValue failed: %v", err)
			}
			if !ok {
				t.Fatalf("expected representable value")
			}
			if result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestFormatValueNotRepresentable(t *testing.T) {
	for _, v := range []Value{
		Double(math.NaN()),
		Double(math.Inf(1)),
		Double(math.Inf(-1)),
		{Type: TypeIDFloat, Data: float32(math.Inf(1))},
	} {
		_, ok, err := FormatValue(v)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", v.Data, err)
		}
		if ok {
			t.Errorf("expected %v to be not representable", v.Data)
		}
	}
}

func TestFormatValueFractionalSeconds(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC)

	for _, v := range []Value{
		Time(ts),
		Timestamp(ts),
		TimestampTZ(ts),
		{Type: TypeIDTimestampNs, Data: ts.Add(-499_999_999)},
		{Type: TypeIDTimestampMs, Data: ts},
	} {
		_, ok, err := FormatValue(v)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", v.Type, err)
		}
		if ok {
			t.Errorf("expected %s %v to be not representable", v.Type, v.Data)
		}
	}
}

func TestFormatValueInvariant(t *testing.T) {
	for _, v := range []Value{
		Blob([]byte("abc")),
		{Type: TypeIDInterval, Data: "1 day"},
		{Type: TypeIDStruct, Data: map[string]any{"a": 1}},
		{Type: TypeIDInvalid, Data: 1},
		{Type: TypeIDBoolean, Data: "true"},
		{Type: TypeIDDate, Data: "2024-01-15"},
		Decimal("1e10"),
		Decimal(""),
		Decimal("1."),
	} {
		_, _, err := FormatValue(v)
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("expected ErrInvariant for %s %v, got %v", v.Type, v.Data, err)
		}
	}
}
