package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidChildren is returned by WithChildren for a wrong child count.
var ErrInvalidChildren = errors.New("plan: invalid number of children")

// Node is a logical plan operator.
type Node interface {
	// Children returns the inputs of the node.
	Children() []Node

	// WithChildren returns a copy of the node with its inputs replaced.
	WithChildren(children ...Node) (Node, error)

	// String returns a one-line description of the node.
	String() string
}

// Expr is a projection or grouping expression. A column reference sets only
// Column; a computed expression sets SQL.
type Expr struct {
	Column string
	SQL    string
}

// Col returns a column reference.
func Col(name string) Expr { return Expr{Column: name} }

// IsColumn reports whether e is a plain column reference.
func (e Expr) IsColumn() bool { return e.SQL == "" && e.Column != "" }

func (e Expr) String() string {
	if e.IsColumn() {
		return e.Column
	}
	return e.SQL
}

// AggregateExpr is an aggregate call in an Aggregate node.
type AggregateExpr struct {
	// Func is the lower-case function name, e.g. "count" or "sum".
	Func string

	// Column is the argument column. Empty with Star means f(*).
	Column string

	Star     bool
	Distinct bool

	// Alias is the output column name.
	Alias string
}

func (a AggregateExpr) String() string {
	arg := a.Column
	switch {
	case a.Star:
		arg = "*"
	case a.Distinct:
		arg = "DISTINCT " + arg
	}
	s := strings.ToUpper(a.Func) + "(" + arg + ")"
	if a.Alias != "" {
		s += " AS " + a.Alias
	}
	return s
}

// LimitKind tells how a LIMIT or OFFSET value is known.
type LimitKind int

const (
	// LimitNone means the clause is absent.
	LimitNone LimitKind = iota
	// LimitConstant means Value holds the constant.
	LimitConstant
	// LimitParameter means the value is a prepared-statement parameter.
	LimitParameter
	// LimitExpression means the value is computed at execution.
	LimitExpression
)

// LimitValue is the value of a LIMIT or OFFSET clause.
type LimitValue struct {
	Kind  LimitKind
	Value int64
}

// Const returns a constant limit value.
func Const(v int64) LimitValue { return LimitValue{Kind: LimitConstant, Value: v} }

func (v LimitValue) String() string {
	switch v.Kind {
	case LimitConstant:
		return strconv.FormatInt(v.Value, 10)
	case LimitParameter:
		return "?"
	case LimitExpression:
		return "<expr>"
	}
	return "none"
}

// Scan reads a table. Target is set when the table is backed by a remote
// scan that accepts pushdown.
type Scan struct {
	Name    string
	Columns []string
	Target  PushdownTarget
}

func (s *Scan) Children() []Node { return nil }

func (s *Scan) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, fmt.Errorf("%w: scan has none, got %d", ErrInvalidChildren, len(children))
	}
	return s, nil
}

func (s *Scan) String() string {
	remote := ""
	if s.Target != nil {
		remote = " remote"
	}
	return fmt.Sprintf("Scan(%s%s) [%s]", s.Name, remote, strings.Join(s.Columns, ", "))
}

// Limit returns at most Limit rows after skipping Offset rows.
type Limit struct {
	Limit  LimitValue
	Offset LimitValue
	Child  Node
}

func (l *Limit) Children() []Node { return []Node{l.Child} }

func (l *Limit) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: limit has 1, got %d", ErrInvalidChildren, len(children))
	}
	nl := *l
	nl.Child = children[0]
	return &nl, nil
}

func (l *Limit) String() string {
	return fmt.Sprintf("Limit(%s offset %s)", l.Limit, l.Offset)
}

// Projection computes Exprs for each row of Child.
type Projection struct {
	Exprs []Expr
	Child Node
}

func (p *Projection) Children() []Node { return []Node{p.Child} }

func (p *Projection) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: projection has 1, got %d", ErrInvalidChildren, len(children))
	}
	np := *p
	np.Child = children[0]
	return &np, nil
}

func (p *Projection) String() string {
	exprs := make([]string, len(p.Exprs))
	for i, e := range p.Exprs {
		exprs[i] = e.String()
	}
	return "Projection(" + strings.Join(exprs, ", ") + ")"
}

// pure reports whether the projection only selects columns, so a LIMIT
// above it may move below it.
func (p *Projection) pure() bool {
	for _, e := range p.Exprs {
		if !e.IsColumn() {
			return false
		}
	}
	return true
}

// Filter keeps the rows of Child matching Condition.
type Filter struct {
	Condition string
	Child     Node
}

func (f *Filter) Children() []Node { return []Node{f.Child} }

func (f *Filter) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: filter has 1, got %d", ErrInvalidChildren, len(children))
	}
	nf := *f
	nf.Child = children[0]
	return &nf, nil
}

func (f *Filter) String() string { return "Filter(" + f.Condition + ")" }

// Aggregate groups the rows of Child by Groups and computes Aggregates.
type Aggregate struct {
	Groups     []Expr
	Aggregates []AggregateExpr
	Child      Node
}

func (a *Aggregate) Children() []Node { return []Node{a.Child} }

func (a *Aggregate) WithChildren(children ...Node) (Node, error) {
	if len(children) != 1 {
		return nil, fmt.Errorf("%w: aggregate has 1, got %d", ErrInvalidChildren, len(children))
	}
	na := *a
	na.Child = children[0]
	return &na, nil
}

func (a *Aggregate) String() string {
	aggs := make([]string, len(a.Aggregates))
	for i, e := range a.Aggregates {
		aggs[i] = e.String()
	}
	groups := make([]string, len(a.Groups))
	for i, e := range a.Groups {
		groups[i] = e.String()
	}
	return fmt.Sprintf("Aggregate(%s group by [%s])", strings.Join(aggs, ", "), strings.Join(groups, ", "))
}

// Join combines Left and Right on Condition.
type Join struct {
	Condition string
	Left      Node
	Right     Node
}

func (j *Join) Children() []Node { return []Node{j.Left, j.Right} }

func (j *Join) WithChildren(children ...Node) (Node, error) {
	if len(children) != 2 {
		return nil, fmt.Errorf("%w: join has 2, got %d", ErrInvalidChildren, len(children))
	}
	nj := *j
	nj.Left, nj.Right = children[0], children[1]
	return &nj, nil
}

func (j *Join) String() string { return "Join(" + j.Condition + ")" }

// Format renders the tree rooted at n, one node per line.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n, 0)
	return sb.String()
}

func format(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for _, c := range n.Children() {
		format(sb, c, depth+1)
	}
}
