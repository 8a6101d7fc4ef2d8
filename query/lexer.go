package query

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokenWord       tokenKind = iota // keyword or bare identifier
	tokenQuoted                      // "quoted identifier"
	tokenString                      // 'string literal'
	tokenNumber                      // numeric literal
	tokenSymbol                      // operator or punctuation
	tokenOpenParen                   // (
	tokenCloseParen                  // )
	tokenSemicolon                   // ;
)

// token is a significant lexeme of a query. Whitespace and comments are not
// tokens.
type token struct {
	kind  tokenKind
	start int // byte offset of the first byte
	end   int // byte offset after the last byte
	depth int // parenthesis depth, 0 at top level
	upper string
}

// is reports whether t is the given top-level keyword.
func (t token) is(keyword string) bool {
	return t.kind == tokenWord && t.depth == 0 && t.upper == keyword
}

func isWordStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isWordPart(c byte) bool {
	return isWordStart(c) || c >= '0' && c <= '9' || c == '$'
}

// tokenize splits q into tokens, skipping "--" and "/* */" comments.
// String literals accept '' and backslash escapes, quoted identifiers accept
// "". Unterminated literals, comments or unbalanced parentheses are errors.
func tokenize(q string) ([]token, error) {
	var toks []token
	depth := 0
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			end := strings.IndexByte(q[i:], '\n')
			if end < 0 {
				i = len(q)
			} else {
				i += end + 1
			}
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += end + 4
		case c == '\'':
			end, err := scanString(q, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokenString, start: i, end: end, depth: depth})
			i = end
		case c == '"':
			end, err := scanQuoted(q, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokenQuoted, start: i, end: end, depth: depth})
			i = end
		case c == '(':
			toks = append(toks, token{kind: tokenOpenParen, start: i, end: i + 1, depth: depth})
			depth++
			i++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", i)
			}
			toks = append(toks, token{kind: tokenCloseParen, start: i, end: i + 1, depth: depth})
			i++
		case c == ';':
			toks = append(toks, token{kind: tokenSemicolon, start: i, end: i + 1, depth: depth})
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9':
			j := i + 1
			for j < len(q) && (isWordPart(q[j]) || q[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokenNumber, start: i, end: j, depth: depth})
			i = j
		case isWordStart(c):
			j := i + 1
			for j < len(q) && isWordPart(q[j]) {
				j++
			}
			toks = append(toks, token{kind: tokenWord, start: i, end: j, depth: depth, upper: strings.ToUpper(q[i:j])})
			i = j
		default:
			toks = append(toks, token{kind: tokenSymbol, start: i, end: i + 1, depth: depth, upper: q[i : i+1]})
			i++
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses: %d unclosed", depth)
	}
	return toks, nil
}

// scanString returns the offset after the string literal starting at q[i].
func scanString(q string, i int) (int, error) {
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			j++
		case '\'':
			if j+1 < len(q) && q[j+1] == '\'' {
				j++
				continue
			}
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string literal at offset %d", i)
}

// scanQuoted returns the offset after the quoted identifier starting at q[i].
func scanQuoted(q string, i int) (int, error) {
	for j := i + 1; j < len(q); j++ {
		if q[j] == '"' {
			if j+1 < len(q) && q[j+1] == '"' {
				j++
				continue
			}
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated quoted identifier at offset %d", i)
}
