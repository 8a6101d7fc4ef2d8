package scan

import (
	"github.com/hugr-lab/remote-scan/query"
)

// Source is what a scan reads: either user-supplied query text or a table
// the engine synthesizes the query for. Use QueryText or Table.
type Source interface {
	// Query returns the query scanning the source without pushdown.
	Query() string

	// render embeds pushed fragments. exact reports whether the returned
	// query selects exactly the rows of the filter set.
	render(p pushdown) (text string, exact bool, err error)
}

// pushdown holds compiled fragments. limit and offset are only applied on
// top of an exact WHERE.
type pushdown struct {
	projection string
	where      string
	exact      bool
	limit      int64
	offset     int64
}

func (p pushdown) limited() bool {
	return p.limit > 0 || p.offset > 0
}

// QueryText returns a source running q as-is. Pushdown edits the text
// through query.Rewrite and falls back to q for shapes it cannot edit.
func QueryText(q string) Source {
	return textSource(q)
}

// Table returns a source scanning a whole table. Pushdown builds the query
// structurally.
func Table(ref query.TableRef) Source {
	return tableSource{ref: ref}
}

type textSource string

func (s textSource) Query() string { return string(s) }

func (s textSource) render(p pushdown) (string, bool, error) {
	text := string(s)
	exact := p.exact
	if p.where != "" {
		rewritten, applied, err := query.Rewrite(text, "", p.where)
		if err != nil {
			return "", false, err
		}
		text = rewritten
		// The query already had a WHERE; the fragment was not pushed.
		exact = exact && applied
	}
	if p.projection != "" {
		rewritten, _, err := query.Rewrite(text, p.projection, "")
		if err != nil {
			return "", false, err
		}
		text = rewritten
	}
	if exact && p.limited() {
		limited, _, err := query.AppendLimit(text, p.limit, p.offset)
		if err != nil {
			return "", false, err
		}
		text = limited
	}
	return text, exact, nil
}

type tableSource struct {
	ref query.TableRef
}

func (s tableSource) Query() string {
	sel := query.Select{Table: s.ref}
	return sel.String()
}

func (s tableSource) render(p pushdown) (string, bool, error) {
	sel := query.Select{
		Table:      s.ref,
		Projection: p.projection,
		Where:      p.where,
	}
	if p.exact {
		sel.Limit, sel.Offset = p.limit, p.offset
	}
	return sel.String(), p.exact, nil
}
