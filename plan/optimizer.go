package plan

import (
	"log/slog"
	"math"

	"github.com/hugr-lab/remote-scan/query"
	"github.com/hugr-lab/remote-scan/scan"
)

// PushdownTarget is the part of a remote scan the pass mutates.
type PushdownTarget interface {
	// SetLimit stores a constant limit and offset. The pass always passes
	// a zero offset: the rows skipped by the plan's OFFSET are fetched and
	// the Limit node skips them.
	SetLimit(limit, offset int64)

	// CountReserved reports whether the scan's schema was bound to the
	// single count column of this aggregate.
	CountReserved(count query.CountSpec) bool

	// SetAggregate pushes the COUNT aggregate.
	SetAggregate(count query.CountSpec)
}

var _ PushdownTarget = (*scan.Factory)(nil)

// Stats counts the rewrites of one Optimize call.
type Stats struct {
	LimitsPushed  int
	LimitsSkipped int
	CountsPushed  int
	CountsSkipped int
}

// Optimizer pushes limits and COUNT aggregates into remote scans. It holds
// no state between calls.
type Optimizer struct {
	logger *slog.Logger
}

// New creates an optimizer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{logger: logger}
}

// Optimize walks the plan depth-first, before other rewrites.
//
// A constant LIMIT whose input is a remote scan, directly or through pure
// column projections, is stored on the scan; the Limit node stays in place.
// An ungrouped single COUNT(*) or COUNT(column) over a remote scan replaces
// the Aggregate node with the scan, but only when the scan reserved a count
// schema at bind. Otherwise the aggregate is left to the engine.
func (o *Optimizer) Optimize(root Node) (Node, Stats, error) {
	var stats Stats
	if root == nil {
		return nil, stats, nil
	}

	n, _, err := TransformDown(root, func(n Node) (Node, TreeIdentity, error) {
		switch n := n.(type) {
		case *Limit:
			o.pushLimit(n, &stats)
		case *Aggregate:
			if s, ok := o.pushCount(n, &stats); ok {
				return s, NewTree, nil
			}
		}
		return n, SameTree, nil
	})
	if err != nil {
		return nil, stats, err
	}

	if stats != (Stats{}) {
		o.logger.Debug("Remote scan pushdown applied",
			"limits_pushed", stats.LimitsPushed,
			"limits_skipped", stats.LimitsSkipped,
			"counts_pushed", stats.CountsPushed,
			"counts_skipped", stats.CountsSkipped,
		)
	}
	return n, stats, nil
}

func (o *Optimizer) pushLimit(l *Limit, stats *Stats) {
	s := remoteScan(l.Child)
	if s == nil {
		return
	}

	if l.Limit.Kind != LimitConstant {
		stats.LimitsSkipped++
		o.logger.Debug("Limit not pushed: not a constant", "scan", s.Name, "limit", l.Limit.String())
		return
	}

	var offset int64
	switch l.Offset.Kind {
	case LimitNone:
	case LimitConstant:
		offset = max(l.Offset.Value, 0)
	default:
		// LIMIT n without its offset would drop rows the engine skips.
		stats.LimitsSkipped++
		o.logger.Debug("Limit not pushed: offset not a constant", "scan", s.Name, "offset", l.Offset.String())
		return
	}

	// The Limit node stays in the plan and applies the offset locally, so
	// the remote returns the first limit+offset rows and skips none.
	if l.Limit.Value <= 0 || offset > math.MaxInt64-l.Limit.Value {
		stats.LimitsSkipped++
		o.logger.Debug("Limit not pushed: out of range", "scan", s.Name, "limit", l.Limit.Value, "offset", offset)
		return
	}
	fetch := l.Limit.Value + offset

	s.Target.SetLimit(fetch, 0)
	stats.LimitsPushed++
	o.logger.Debug("Limit pushed to remote scan", "scan", s.Name, "limit", l.Limit.Value, "offset", offset, "fetch", fetch)
}

func (o *Optimizer) pushCount(a *Aggregate, stats *Stats) (Node, bool) {
	if len(a.Groups) != 0 || len(a.Aggregates) != 1 {
		return nil, false
	}
	agg := a.Aggregates[0]
	if agg.Func != "count" || agg.Distinct || (!agg.Star && agg.Column == "") {
		return nil, false
	}

	s := remoteScan(a.Child)
	if s == nil {
		return nil, false
	}

	count := query.CountSpec{Alias: agg.Alias}
	if !agg.Star {
		count.Column = agg.Column
	}
	if count.Alias == "" {
		count.Alias = countName(count)
	}

	if !s.Target.CountReserved(count) {
		stats.CountsSkipped++
		o.logger.Debug("Count not pushed: no count schema reserved at bind", "scan", s.Name, "count", count.String())
		return nil, false
	}

	s.Target.SetAggregate(count)
	stats.CountsPushed++
	o.logger.Debug("Count pushed to remote scan", "scan", s.Name, "count", count.String())
	return &Scan{Name: s.Name, Columns: []string{count.Alias}, Target: s.Target}, true
}

// remoteScan returns the remote scan n reads, looking through pure
// projections, or nil.
func remoteScan(n Node) *Scan {
	for {
		switch c := n.(type) {
		case *Scan:
			if c.Target == nil {
				return nil
			}
			return c
		case *Projection:
			if !c.pure() {
				return nil
			}
			n = c.Child
		default:
			return nil
		}
	}
}

func countName(c query.CountSpec) string {
	if c.Column == "" {
		return "count_star()"
	}
	return "count(" + c.Column + ")"
}
