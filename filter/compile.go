package filter

import (
	"strings"
)

// CompilerOptions configures filter compilation.
type CompilerOptions struct {
	// ColumnMapping maps engine column names to remote column names.
	// Columns not present in the map are used as-is.
	ColumnMapping map[string]string
}

// Compiler compiles filter trees to SQL boolean expressions for a remote
// source. A Compiler holds no mutable state and is safe for concurrent use.
type Compiler struct {
	opts *CompilerOptions
}

// NewCompiler creates a new filter compiler.
// If opts is nil, default options are used.
func NewCompiler(opts *CompilerOptions) *Compiler {
	if opts == nil {
		opts = &CompilerOptions{}
	}
	return &Compiler{opts: opts}
}

// Result is the compiled WHERE fragment of a filter set.
type Result struct {
	// SQL is the condition without the WHERE keyword. Empty when nothing
	// could be pushed.
	SQL string

	// Exact is true when SQL selects exactly the rows the filter set
	// selects: every entry compiled and no conjunct was dropped. A remote
	// LIMIT or COUNT is only correct on top of an exact fragment.
	Exact bool

	// Pushed is the number of set entries that contributed to SQL.
	Pushed int

	// Total is the number of set entries.
	Total int
}

// fragment is the compiled form of one filter node.
type fragment struct {
	sql   string
	exact bool
}

// Compile converts a single filter on column to SQL.
//
// ok is false when the filter cannot be pushed; the caller then applies it
// locally. err is non-nil only for invariant violations: an empty InSet, an
// empty column name, a nil node or a constant that can never be a literal.
func (c *Compiler) Compile(f Filter, column string) (sql string, ok bool, err error) {
	frag, ok, err := c.compile(f, column)
	if err != nil || !ok {
		return "", false, err
	}
	return frag.sql, true, nil
}

// CompileSet converts every entry of set to SQL and joins the pushed
// fragments with AND. Entries that cannot be pushed are skipped and make the
// result inexact. An index outside cols is an invariant violation.
func (c *Compiler) CompileSet(set Set, cols Columns) (Result, error) {
	res := Result{Exact: true, Total: len(set)}
	if len(set) == 0 {
		return res, nil
	}

	var parts []string
	for _, idx := range set.Indexes() {
		name, err := cols.Name(idx)
		if err != nil {
			return Result{}, err
		}
		frag, ok, err := c.compile(set[idx], name)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			res.Exact = false
			continue
		}
		parts = append(parts, frag.sql)
		res.Exact = res.Exact && frag.exact
		res.Pushed++
	}

	res.SQL = strings.Join(parts, " AND ")
	return res, nil
}

// CompileProjection returns cols as a comma-separated list of quoted
// identifiers. An empty list compiles to the empty string.
func (c *Compiler) CompileProjection(cols []string) (string, error) {
	if len(cols) == 0 {
		return "", nil
	}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		id, err := c.identifier(col)
		if err != nil {
			return "", err
		}
		quoted[i] = id
	}
	return strings.Join(quoted, ", "), nil
}

func (c *Compiler) identifier(column string) (string, error) {
	if column == "" {
		return "", &InvariantError{Kind: InvariantEmptyColumn, Detail: "empty column name"}
	}
	if mapped, ok := c.opts.ColumnMapping[column]; ok && mapped != "" {
		column = mapped
	}
	return QuoteIdentifier(column), nil
}

func (c *Compiler) compile(f Filter, column string) (fragment, bool, error) {
	id, err := c.identifier(column)
	if err != nil {
		return fragment{}, false, err
	}
	return c.compileNode(f, id)
}

// compileNode dispatches on the filter kind. id is the already quoted column.
func (c *Compiler) compileNode(f Filter, id string) (fragment, bool, error) {
	switch n := f.(type) {
	case nil:
		return fragment{}, false, &InvariantError{Kind: InvariantNilFilter, Detail: "nil filter node"}
	case *ConstantComparison:
		return c.compileComparison(n, id)
	case *IsNull:
		return fragment{sql: id + " IS NULL", exact: true}, true, nil
	case *IsNotNull:
		return fragment{sql: id + " IS NOT NULL", exact: true}, true, nil
	case *InSet:
		return c.compileInSet(n, id)
	case *And:
		return c.compileAnd(n, id)
	case *Or:
		return c.compileOr(n, id)
	case *Optional:
		if n.Child == nil {
			return fragment{}, false, &InvariantError{Kind: InvariantNilFilter, Detail: "optional filter without child"}
		}
		return c.compileNode(n.Child, id)
	case *Deferred:
		resolved := n.Resolved()
		if resolved == nil {
			return fragment{}, false, nil
		}
		return c.compileNode(resolved, id)
	default:
		return fragment{}, false, nil
	}
}

var comparisonOperators = map[ComparisonType]string{
	CompareEqual:              " = ",
	CompareNotEqual:           " != ",
	CompareLessThan:           " < ",
	CompareGreaterThan:        " > ",
	CompareLessThanOrEqual:    " <= ",
	CompareGreaterThanOrEqual: " >= ",
	CompareDistinctFrom:       " IS DISTINCT FROM ",
	CompareNotDistinctFrom:    " IS NOT DISTINCT FROM ",
}

func (c *Compiler) compileComparison(n *ConstantComparison, id string) (fragment, bool, error) {
	op, known := comparisonOperators[n.Op]
	if !known {
		return fragment{}, false, nil
	}
	lit, ok, err := FormatValue(n.Value)
	if err != nil || !ok {
		return fragment{}, false, err
	}
	return fragment{sql: id + op + lit, exact: true}, true, nil
}

func (c *Compiler) compileInSet(n *InSet, id string) (fragment, bool, error) {
	if len(n.Values) == 0 {
		return fragment{}, false, &InvariantError{Kind: InvariantEmptyInSet, Detail: "IN filter on " + id + " has no values"}
	}
	lits := make([]string, 0, len(n.Values))
	all := true
	for _, v := range n.Values {
		lit, ok, err := FormatValue(v)
		if err != nil {
			return fragment{}, false, err
		}
		all = all && ok
		lits = append(lits, lit)
	}
	if !all {
		return fragment{}, false, nil
	}
	return fragment{sql: id + " IN (" + strings.Join(lits, ", ") + ")", exact: true}, true, nil
}

// compileAnd drops children that cannot be pushed. The remaining conjunction
// selects a superset of the rows, which the engine narrows locally.
func (c *Compiler) compileAnd(n *And, id string) (fragment, bool, error) {
	parts := make([]string, 0, len(n.Children))
	exact := true
	for _, child := range n.Children {
		frag, ok, err := c.compileNode(child, id)
		if err != nil {
			return fragment{}, false, err
		}
		if !ok {
			exact = false
			continue
		}
		parts = append(parts, frag.sql)
		exact = exact && frag.exact
	}
	return group(parts, " AND ", exact)
}

// compileOr is all-or-nothing: a disjunction missing one branch selects
// fewer rows than the filter, and local re-filtering cannot bring them back.
// Every child is still compiled so invariant violations surface.
func (c *Compiler) compileOr(n *Or, id string) (fragment, bool, error) {
	parts := make([]string, 0, len(n.Children))
	exact, all := true, true
	for _, child := range n.Children {
		frag, ok, err := c.compileNode(child, id)
		if err != nil {
			return fragment{}, false, err
		}
		if !ok {
			all = false
			continue
		}
		parts = append(parts, frag.sql)
		exact = exact && frag.exact
	}
	if !all {
		return fragment{}, false, nil
	}
	return group(parts, " OR ", exact)
}

func group(parts []string, op string, exact bool) (fragment, bool, error) {
	switch len(parts) {
	case 0:
		return fragment{}, false, nil
	case 1:
		return fragment{sql: parts[0], exact: exact}, true, nil
	default:
		return fragment{sql: "(" + strings.Join(parts, op) + ")", exact: exact}, true, nil
	}
}
