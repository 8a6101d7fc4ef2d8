package query

import (
	"strings"

	"github.com/hugr-lab/remote-scan/filter"
)

// TableRef names a remote table. Empty Catalog and Schema parts are omitted.
type TableRef struct {
	Catalog string
	Schema  string
	Name    string
}

// String returns the dotted, quoted table name.
func (t TableRef) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Catalog, t.Schema, t.Name} {
		if p != "" {
			parts = append(parts, filter.QuoteIdentifier(p))
		}
	}
	return strings.Join(parts, ".")
}

// CountSpec describes a single COUNT aggregate.
type CountSpec struct {
	// Column is the counted column. Empty means COUNT(*).
	Column string

	// Alias names the result column. Empty leaves it to the remote.
	Alias string
}

// String returns the COUNT expression with its alias.
func (c CountSpec) String() string {
	expr := "COUNT(*)"
	if c.Column != "" {
		expr = "COUNT(" + filter.QuoteIdentifier(c.Column) + ")"
	}
	if c.Alias != "" {
		expr += " AS " + filter.QuoteIdentifier(c.Alias)
	}
	return expr
}

// Select is a synthesized scan of a single table. It is used when the scan
// is built from a table reference rather than from user query text, so
// fragments are placed structurally instead of by text insertion.
type Select struct {
	Table TableRef

	// Projection is a compiled select list. Empty selects all columns.
	Projection string

	// Where is a compiled boolean fragment. Empty means no WHERE clause.
	Where string

	// Limit is the maximum number of rows. If 0 or negative, no limit.
	Limit int64

	// Offset is the number of rows to skip. If 0 or negative, none.
	Offset int64

	// Count replaces the select list with a COUNT aggregate. Combined with
	// Limit or Offset the rows are counted after limiting.
	Count *CountSpec
}

// String serializes s as SQL.
func (s *Select) String() string {
	if s.Count != nil && (s.Limit > 0 || s.Offset > 0) {
		inner := *s
		inner.Count = nil
		inner.Projection = ""
		return "SELECT " + s.Count.String() + " FROM (" + inner.String() + `) AS "pushdown_count"`
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case s.Count != nil:
		sb.WriteString(s.Count.String())
	case s.Projection != "":
		sb.WriteString(s.Projection)
	default:
		sb.WriteString("*")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.Table.String())
	if s.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(s.Where)
	}
	sb.WriteString(limitClause(s.Limit, s.Offset))
	return sb.String()
}
