package filter

import (
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// QuoteIdentifier returns name as a double-quoted identifier with inner
// double quotes doubled. Identifiers are always quoted: the remote keyword
// set is unknown, and columns named USER, ORDER or ROLE are ordinary data.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral returns s as a single-quoted SQL string literal.
//
// Backslashes are doubled, single quotes are doubled, and every byte outside
// the printable ASCII range is written as a \xHH escape, so the literal body
// only ever contains printable ASCII.
func QuoteLiteral(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\'':
			sb.WriteString(`''`)
		case c < 0x20 || c > 0x7e:
			sb.WriteString(`\x`)
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0f])
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// isDigit returns true if c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isCanonicalDecimal reports whether s is [+-]digits[.digits].
func isCanonicalDecimal(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	digits, dot := 0, false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			digits++
		case c == '.' && !dot && digits > 0:
			dot = true
			digits = 0
		default:
			return false
		}
	}
	return digits > 0
}
