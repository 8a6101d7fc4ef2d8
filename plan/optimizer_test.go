package plan

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/remote-scan/query"
	"github.com/hugr-lab/remote-scan/scan"
)

type limitCall struct{ limit, offset int64 }

type fakeTarget struct {
	reserved   *query.CountSpec
	limits     []limitCall
	aggregates []query.CountSpec
}

func (t *fakeTarget) SetLimit(limit, offset int64) {
	t.limits = append(t.limits, limitCall{limit, offset})
}

func (t *fakeTarget) CountReserved(count query.CountSpec) bool {
	return t.reserved != nil && t.reserved.Column == count.Column
}

func (t *fakeTarget) SetAggregate(count query.CountSpec) {
	t.aggregates = append(t.aggregates, count)
}

func remote(t *fakeTarget) *Scan {
	return &Scan{Name: "orders", Columns: []string{"id", "amount"}, Target: t}
}

func TestOptimizeLimit(t *testing.T) {
	tests := []struct {
		name     string
		plan     func(s *Scan) Node
		expected []limitCall
		stats    Stats
	}{
		{
			name:     "limit over scan",
			plan:     func(s *Scan) Node { return &Limit{Limit: Const(10), Child: s} },
			expected: []limitCall{{10, 0}},
			stats:    Stats{LimitsPushed: 1},
		},
		{
			name:     "limit with offset",
			plan:     func(s *Scan) Node { return &Limit{Limit: Const(10), Offset: Const(5), Child: s} },
			expected: []limitCall{{15, 0}},
			stats:    Stats{LimitsPushed: 1},
		},
		{
			name:  "limit plus offset overflows",
			plan:  func(s *Scan) Node { return &Limit{Limit: Const(math.MaxInt64), Offset: Const(1), Child: s} },
			stats: Stats{LimitsSkipped: 1},
		},
		{
			name:  "zero limit",
			plan:  func(s *Scan) Node { return &Limit{Limit: Const(0), Child: s} },
			stats: Stats{LimitsSkipped: 1},
		},
		{
			name: "through pure projections",
			plan: func(s *Scan) Node {
				return &Limit{Limit: Const(3), Child: &Projection{
					Exprs: []Expr{Col("id")},
					Child: &Projection{Exprs: []Expr{Col("id"), Col("amount")}, Child: s},
				}}
			},
			expected: []limitCall{{3, 0}},
			stats:    Stats{LimitsPushed: 1},
		},
		{
			name: "computed projection",
			plan: func(s *Scan) Node {
				return &Limit{Limit: Const(3), Child: &Projection{Exprs: []Expr{{SQL: "amount * 2"}}, Child: s}}
			},
		},
		{
			name: "filter in between",
			plan: func(s *Scan) Node {
				return &Limit{Limit: Const(3), Child: &Filter{Condition: "amount > 10", Child: s}}
			},
		},
		{
			name:  "parameter limit",
			plan:  func(s *Scan) Node { return &Limit{Limit: LimitValue{Kind: LimitParameter}, Child: s} },
			stats: Stats{LimitsSkipped: 1},
		},
		{
			name: "expression offset",
			plan: func(s *Scan) Node {
				return &Limit{Limit: Const(10), Offset: LimitValue{Kind: LimitExpression}, Child: s}
			},
			stats: Stats{LimitsSkipped: 1},
		},
		{
			name: "nested under join",
			plan: func(s *Scan) Node {
				return &Join{
					Condition: "a.id = b.id",
					Left:      &Scan{Name: "local"},
					Right:     &Filter{Condition: "x", Child: &Limit{Limit: Const(7), Child: s}},
				}
			},
			expected: []limitCall{{7, 0}},
			stats:    Stats{LimitsPushed: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{}
			root := tt.plan(remote(target))

			out, stats, err := New(nil).Optimize(root)
			require.NoError(t, err)
			assert.Same(t, root, out, "limit pushdown does not rewrite the tree")
			assert.Equal(t, tt.expected, target.limits)
			assert.Equal(t, tt.stats, stats)
		})
	}
}

func TestOptimizeLimitOverLocalScan(t *testing.T) {
	root := &Limit{Limit: Const(1), Child: &Scan{Name: "local"}}
	_, stats, err := New(nil).Optimize(root)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestOptimizeCount(t *testing.T) {
	star := &query.CountSpec{}
	byID := &query.CountSpec{Column: "id"}

	tests := []struct {
		name     string
		reserved *query.CountSpec
		agg      *Aggregate
		pushed   []query.CountSpec
		stats    Stats
	}{
		{
			name:     "count star reserved",
			reserved: star,
			agg:      &Aggregate{Aggregates: []AggregateExpr{{Func: "count", Star: true}}},
			pushed:   []query.CountSpec{{Alias: "count_star()"}},
			stats:    Stats{CountsPushed: 1},
		},
		{
			name:     "count column reserved",
			reserved: byID,
			agg:      &Aggregate{Aggregates: []AggregateExpr{{Func: "count", Column: "id", Alias: "n"}}},
			pushed:   []query.CountSpec{{Column: "id", Alias: "n"}},
			stats:    Stats{CountsPushed: 1},
		},
		{
			name:  "not reserved",
			agg:   &Aggregate{Aggregates: []AggregateExpr{{Func: "count", Star: true}}},
			stats: Stats{CountsSkipped: 1},
		},
		{
			name:     "reserved for another column",
			reserved: star,
			agg:      &Aggregate{Aggregates: []AggregateExpr{{Func: "count", Column: "id"}}},
			stats:    Stats{CountsSkipped: 1},
		},
		{
			name:     "grouped",
			reserved: star,
			agg: &Aggregate{
				Groups:     []Expr{Col("amount")},
				Aggregates: []AggregateExpr{{Func: "count", Star: true}},
			},
		},
		{
			name:     "two aggregates",
			reserved: star,
			agg: &Aggregate{Aggregates: []AggregateExpr{
				{Func: "count", Star: true},
				{Func: "sum", Column: "amount"},
			}},
		},
		{
			name:     "count distinct",
			reserved: byID,
			agg:      &Aggregate{Aggregates: []AggregateExpr{{Func: "count", Column: "id", Distinct: true}}},
		},
		{
			name:     "sum",
			reserved: star,
			agg:      &Aggregate{Aggregates: []AggregateExpr{{Func: "sum", Column: "amount"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{reserved: tt.reserved}
			tt.agg.Child = remote(target)

			out, stats, err := New(nil).Optimize(tt.agg)
			require.NoError(t, err)
			assert.Equal(t, tt.stats, stats)
			assert.Equal(t, tt.pushed, target.aggregates)

			if len(tt.pushed) == 0 {
				assert.Same(t, Node(tt.agg), out, "tree left untouched")
				return
			}
			s, ok := out.(*Scan)
			require.True(t, ok, "aggregate replaced by scan, got %s", Format(out))
			assert.Equal(t, []string{tt.pushed[0].Alias}, s.Columns)
			assert.Equal(t, PushdownTarget(target), s.Target)
		})
	}
}

func TestOptimizeCountReplacesNestedAggregate(t *testing.T) {
	target := &fakeTarget{reserved: &query.CountSpec{}}
	root := &Projection{
		Exprs: []Expr{{SQL: "count_star() + 1"}},
		Child: &Aggregate{
			Aggregates: []AggregateExpr{{Func: "count", Star: true}},
			Child:      &Projection{Exprs: []Expr{Col("id")}, Child: remote(target)},
		},
	}

	out, stats, err := New(nil).Optimize(root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CountsPushed)

	expected := "Projection(count_star() + 1)\n" +
		"  Scan(orders remote) [count_star()]\n"
	assert.Equal(t, expected, Format(out))
	assert.Equal(t, "Projection(count_star() + 1)\n"+
		"  Aggregate(COUNT(*) group by [])\n"+
		"    Projection(id)\n"+
		"      Scan(orders remote) [id, amount]\n", Format(root), "input tree not modified")
}

func TestOptimizeVisitsEveryBranch(t *testing.T) {
	left, right := &fakeTarget{}, &fakeTarget{reserved: &query.CountSpec{}}
	root := &Join{
		Condition: "true",
		Left:      &Limit{Limit: Const(2), Child: remote(left)},
		Right: &Aggregate{
			Aggregates: []AggregateExpr{{Func: "count", Star: true}},
			Child:      remote(right),
		},
	}

	out, stats, err := New(nil).Optimize(root)
	require.NoError(t, err)
	assert.Equal(t, Stats{LimitsPushed: 1, CountsPushed: 1}, stats)
	assert.Equal(t, []limitCall{{2, 0}}, left.limits)
	assert.Len(t, right.aggregates, 1)

	j, ok := out.(*Join)
	require.True(t, ok)
	assert.IsType(t, &Scan{}, j.Right)
	assert.Same(t, root.Left, j.Left)
}

func TestOptimizeNil(t *testing.T) {
	out, stats, err := New(nil).Optimize(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, Stats{}, stats)
}

type badNode struct{ child Node }

func (b *badNode) Children() []Node { return []Node{b.child} }
func (b *badNode) WithChildren(...Node) (Node, error) {
	return nil, ErrInvalidChildren
}
func (b *badNode) String() string { return "Bad" }

func TestOptimizePropagatesWithChildrenError(t *testing.T) {
	target := &fakeTarget{reserved: &query.CountSpec{}}
	root := &badNode{child: &Aggregate{
		Aggregates: []AggregateExpr{{Func: "count", Star: true}},
		Child:      remote(target),
	}}

	_, _, err := New(nil).Optimize(root)
	assert.True(t, errors.Is(err, ErrInvalidChildren))
}

func TestOptimizeWithFactory(t *testing.T) {
	f := scan.New(nil, scan.QueryText("SELECT * FROM orders"))
	defer f.Close()

	root := &Limit{Limit: Const(100), Offset: Const(20), Child: &Scan{Name: "orders", Target: f}}
	_, stats, err := New(nil).Optimize(root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LimitsPushed)
	assert.Equal(t, "SELECT * FROM orders LIMIT 120", f.ModifiedQuery())

	cnt := &Aggregate{
		Aggregates: []AggregateExpr{{Func: "count", Star: true}},
		Child:      &Scan{Name: "orders", Target: f},
	}
	out, stats, err := New(nil).Optimize(cnt)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CountsSkipped)
	assert.Same(t, Node(cnt), out)
	assert.Nil(t, f.Params().Count)
}
