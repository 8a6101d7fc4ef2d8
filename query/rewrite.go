package query

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupported is returned for queries whose shape the rewriter does not
// handle: anything other than a single SELECT ... FROM statement without set
// operations or a WITH prefix. Callers keep the original query.
var ErrUnsupported = errors.New("query not supported for pushdown")

// statement is a tokenized single SELECT statement.
type statement struct {
	text string
	toks []token // trailing semicolons removed
	from int     // index of the top-level FROM
}

func parse(q string) (*statement, error) {
	toks, err := single(q)
	if err != nil {
		return nil, err
	}

	first := toks[0]
	switch {
	case first.is("WITH"):
		return nil, fmt.Errorf("%w: common table expression", ErrUnsupported)
	case !first.is("SELECT"):
		return nil, fmt.Errorf("%w: not a SELECT statement", ErrUnsupported)
	}

	from := -1
	for i, t := range toks {
		switch {
		case t.is("UNION"), t.is("INTERSECT"), t.is("EXCEPT"), t.is("MINUS"):
			return nil, fmt.Errorf("%w: set operation %s", ErrUnsupported, t.upper)
		case t.is("FROM") && from < 0:
			from = i
		}
	}
	if from < 0 {
		return nil, fmt.Errorf("%w: no FROM clause", ErrUnsupported)
	}

	return &statement{text: q, toks: toks, from: from}, nil
}

// single tokenizes q and strips trailing semicolons. More than one statement
// is unsupported.
func single(q string) ([]token, error) {
	toks, err := tokenize(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	n := len(toks)
	for n > 0 && toks[n-1].kind == tokenSemicolon {
		n--
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrUnsupported)
	}
	for _, t := range toks[:n] {
		if t.kind == tokenSemicolon {
			return nil, fmt.Errorf("%w: multiple statements", ErrUnsupported)
		}
	}
	return toks[:n], nil
}

// has reports whether any of the keywords occurs at top level after FROM.
func (s *statement) has(keywords ...string) bool {
	for _, t := range s.toks[s.from+1:] {
		for _, kw := range keywords {
			if t.is(kw) {
				return true
			}
		}
	}
	return false
}

// tailClause returns the index of the first top-level clause that must
// follow WHERE, or len(toks) when there is none.
func (s *statement) tailClause() int {
	for i := s.from + 1; i < len(s.toks); i++ {
		t := s.toks[i]
		switch {
		case t.is("GROUP"), t.is("ORDER"):
			if i+1 < len(s.toks) && s.toks[i+1].is("BY") {
				return i
			}
		case t.is("HAVING"), t.is("LIMIT"), t.is("OFFSET"), t.is("QUALIFY"),
			t.is("FETCH"), t.is("WINDOW"):
			return i
		}
	}
	return len(s.toks)
}

// star returns the "*" token of a SELECT * list. SELECT DISTINCT * is not
// matched: DISTINCT over fewer columns merges rows the engine keeps apart.
func (s *statement) star() (token, bool) {
	list := s.toks[1:s.from]
	if len(list) == 1 && list[0].kind == tokenSymbol && list[0].upper == "*" {
		return list[0], true
	}
	return token{}, false
}

// end returns the offset after the last significant token. Text appended
// there stays outside any trailing comment.
func (s *statement) end() int {
	return s.toks[len(s.toks)-1].end
}

// Rewrite embeds a compiled select list and WHERE fragment into original.
//
// The WHERE fragment is inserted before the first top-level GROUP BY,
// HAVING, ORDER BY, LIMIT, OFFSET, QUALIFY, FETCH or WINDOW clause, or at the
// end. A query that already has a top-level WHERE keeps it and the fragment
// is not pushed. The select list only replaces a plain "*"; an explicit
// list or DISTINCT * is kept.
//
// modified reports whether the returned text differs from original. Queries
// that are not a single simple SELECT return an error wrapping ErrUnsupported.
func Rewrite(original, selectList, where string) (rewritten string, modified bool, err error) {
	if selectList == "" && where == "" {
		return original, false, nil
	}

	st, err := parse(original)
	if err != nil {
		return "", false, err
	}

	out := original
	if where != "" && !st.has("WHERE") {
		pos := st.end()
		if i := st.tailClause(); i < len(st.toks) {
			pos = st.toks[i-1].end
		}
		out = out[:pos] + " WHERE " + where + out[pos:]
		modified = true
	}

	// The select list precedes FROM, so its offsets are still valid.
	if selectList != "" {
		if star, ok := st.star(); ok {
			out = out[:star.start] + selectList + out[star.end:]
			modified = true
		}
	}

	return out, modified, nil
}

// AppendLimit appends LIMIT and OFFSET clauses to q. A limit <= 0 means no
// limit and an offset <= 0 means no offset. A query that already limits its
// rows (LIMIT, OFFSET, FETCH or TOP) is returned unchanged.
func AppendLimit(q string, limit, offset int64) (string, bool, error) {
	if limit <= 0 && offset <= 0 {
		return q, false, nil
	}

	st, err := parse(q)
	if err != nil {
		return "", false, err
	}
	if st.has("LIMIT", "OFFSET", "FETCH") || (len(st.toks) > 1 && st.toks[1].is("TOP")) {
		return q, false, nil
	}

	pos := st.end()
	return q[:pos] + limitClause(limit, offset) + q[pos:], true, nil
}

func limitClause(limit, offset int64) string {
	var clause string
	if limit > 0 {
		clause += " LIMIT " + strconv.FormatInt(limit, 10)
	}
	if offset > 0 {
		clause += " OFFSET " + strconv.FormatInt(offset, 10)
	}
	return clause
}

// WrapCount returns a query counting the rows of q:
//
//	SELECT COUNT(*) AS "count_star()" FROM (q) AS "pushdown_count"
//
// q may be any single statement that is valid as a subquery.
func WrapCount(q string, count CountSpec) (string, error) {
	toks, err := single(q)
	if err != nil {
		return "", err
	}
	inner := q[toks[0].start:toks[len(toks)-1].end]
	return "SELECT " + count.String() + ` FROM (` + inner + `) AS "pushdown_count"`, nil
}
