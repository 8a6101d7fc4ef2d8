package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/remote-scan/filter"
	"github.com/hugr-lab/remote-scan/internal/recovery"
	"github.com/hugr-lab/remote-scan/query"
)

var (
	// ErrReleased is returned by every request after Close.
	ErrReleased = errors.New("scan: factory released")

	// ErrStreamOpen is returned by Stream while a previous stream is open.
	ErrStreamOpen = errors.New("scan: stream already open")

	// ErrInexactCount is returned by Stream when a COUNT aggregate was
	// pushed but the filters could not be pushed exactly. The remote count
	// would include rows the engine filters out.
	ErrInexactCount = errors.New("scan: count pushdown requires exact filters")

	// ErrCountNotPushed is returned by Stream when a count schema was
	// reserved at bind but no aggregate was pushed.
	ErrCountNotPushed = errors.New("scan: count schema reserved but no aggregate pushed")
)

// KeepLimit passed as limit to UpdatePushdownParameters keeps the limit and
// offset set earlier, typically by the plan pass.
const KeepLimit int64 = -1

// Params are the pushdown parameters of a scan.
type Params struct {
	// Projection lists the columns to fetch. Empty fetches all columns.
	Projection []string

	// Filters are addressed by index into Projection, or into the bound
	// columns when Projection is empty.
	Filters filter.Set

	// Limit is the maximum number of rows. If 0 or negative, no limit.
	Limit int64

	// Offset is the number of rows to skip.
	Offset int64

	// Count is the pushed COUNT aggregate, if any.
	Count *query.CountSpec
}

// Factory produces the schema and the row stream of one remote scan.
//
// It owns a lazily created statement handle. The schema is discovered with
// the original query; pushdown parameters may change afterwards and are
// applied when the stream is produced, by re-setting the query text on the
// same handle.
//
// A Factory is not safe for concurrent use. The engine calls it from one
// goroutine at a time: the plan pass during planning, then
// UpdatePushdownParameters and Stream during execution. Distinct factories
// share nothing and may run concurrently.
type Factory struct {
	conn        Connection
	source      Source
	logger      *slog.Logger
	compiler    *filter.Compiler
	pushdown    bool
	countSchema *query.CountSpec
	columns     filter.Columns

	original string
	modified string
	exact    bool
	params   Params

	stmt     Statement
	prepared string
	state    State
	stream   *Stream
}

// New creates a scan factory over conn. No remote call is made until Schema
// or Stream is called.
func New(conn Connection, source Source, opts ...Option) *Factory {
	f := &Factory{
		conn:     conn,
		source:   source,
		logger:   slog.Default(),
		compiler: filter.NewCompiler(nil),
		pushdown: true,
		original: source.Query(),
		exact:    true,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.modified = f.original
	return f
}

// State returns the statement handle state.
func (f *Factory) State() State { return f.state }

// OriginalQuery returns the query text fixed at construction.
func (f *Factory) OriginalQuery() string { return f.original }

// ModifiedQuery returns the query text the next Stream call executes,
// before COUNT wrapping.
func (f *Factory) ModifiedQuery() string { return f.modified }

// Params returns a copy of the current pushdown parameters.
func (f *Factory) Params() Params {
	p := f.params
	p.Projection = slices.Clone(p.Projection)
	if p.Count != nil {
		c := *p.Count
		p.Count = &c
	}
	return p
}

// Schema prepares the handle with the original query and returns the result
// schema without fetching rows. Pushdown parameters are not applied, so the
// schema matches the full projection fixed at bind. When a count schema was
// reserved, the schema of the count query is returned instead.
func (f *Factory) Schema(ctx context.Context) (*arrow.Schema, error) {
	if f.state == StateReleased {
		return nil, ErrReleased
	}
	if f.state == StateExecuting {
		return nil, ErrStreamOpen
	}

	text := f.original
	if f.countSchema != nil {
		var err error
		if text, err = query.WrapCount(f.original, *f.countSchema); err != nil {
			return nil, fmt.Errorf("scan: count query: %w", err)
		}
	}

	if err := f.prepare(ctx, text); err != nil {
		return nil, err
	}

	schema, err := recovery.RecoverToValue(f.logger, OpExecuteSchema, func() (*arrow.Schema, error) {
		return f.stmt.ExecuteSchema(ctx)
	})
	if err != nil {
		return nil, f.fail(OpExecuteSchema, err)
	}

	if f.countSchema == nil && len(f.columns) == 0 {
		f.columns = make(filter.Columns, schema.NumFields())
		for i, field := range schema.Fields() {
			f.columns[i] = field.Name
		}
	}
	return schema, nil
}

// UpdatePushdownParameters stores the final projection and filters and
// recompiles the modified query. Pass KeepLimit as limit to keep the limit
// and offset set by the plan pass.
//
// Shapes that cannot be pushed never fail: the modified query falls back to
// the original query and the engine filters locally. The only error is an
// invariant violation in the filter tree (errors.Is(err, filter.ErrInvariant));
// the modified query is then reset to the original query as well.
func (f *Factory) UpdatePushdownParameters(projection []string, filters filter.Set, limit, offset int64) error {
	f.params.Projection = slices.Clone(projection)
	f.params.Filters = filters
	if limit != KeepLimit {
		f.params.Limit, f.params.Offset = limit, offset
	}
	return f.recompile()
}

// SetLimit stores a limit and offset found by the plan pass.
func (f *Factory) SetLimit(limit, offset int64) {
	f.params.Limit, f.params.Offset = limit, offset
	if err := f.recompile(); err != nil {
		f.logger.Warn("Pushdown recompilation failed after limit update", "error", err)
	}
}

// CountReserved reports whether the bind phase reserved a count schema for
// exactly this aggregate.
func (f *Factory) CountReserved(count query.CountSpec) bool {
	return f.countSchema != nil && f.countSchema.Column == count.Column
}

// SetAggregate pushes a COUNT aggregate. It is ignored unless CountReserved
// reports true for it.
func (f *Factory) SetAggregate(count query.CountSpec) {
	if !f.CountReserved(count) {
		f.logger.Debug("Count aggregate not pushed: no reserved count schema", "column", count.Column)
		return
	}
	c := *f.countSchema
	f.params.Count = &c
}

// recompile rebuilds the modified query from the current parameters.
func (f *Factory) recompile() error {
	text, exact, err := f.build()
	if err != nil {
		f.modified = f.original
		f.exact = len(f.params.Filters) == 0
		if errors.Is(err, filter.ErrInvariant) {
			f.logger.Error("Invalid filter for pushdown", "query", f.original, "error", err)
			return err
		}
		f.logger.Debug("Query not rewritable, using original query", "query", f.original, "error", err)
		return nil
	}
	f.modified = text
	f.exact = exact
	return nil
}

func (f *Factory) build() (string, bool, error) {
	if !f.pushdown {
		return f.original, len(f.params.Filters) == 0, nil
	}

	proj, err := f.compiler.CompileProjection(f.params.Projection)
	if err != nil {
		return "", false, err
	}

	cols := f.columns
	if len(f.params.Projection) > 0 {
		cols = filter.Columns(f.params.Projection)
	}
	res, err := f.compiler.CompileSet(f.params.Filters, cols)
	if err != nil {
		return "", false, err
	}

	p := pushdown{
		projection: proj,
		where:      res.SQL,
		exact:      res.Exact,
		limit:      f.params.Limit,
		offset:     f.params.Offset,
	}
	text, exact, err := f.source.render(p)
	if err != nil {
		return "", false, err
	}

	f.logger.Debug("Pushdown query compiled",
		"original", f.original,
		"modified", text,
		"filters_pushed", res.Pushed,
		"filters_total", res.Total,
		"exact", exact,
	)
	if !exact && p.limited() {
		f.logger.Debug("Limit not pushed: filters not pushed exactly", "limit", p.limit, "offset", p.offset)
	}
	return text, exact, nil
}

// executable returns the text Stream runs: the modified query, wrapped in a
// COUNT when an aggregate was pushed.
func (f *Factory) executable() (string, error) {
	switch {
	case f.countSchema != nil && f.params.Count == nil:
		return "", ErrCountNotPushed
	case f.params.Count == nil:
		return f.modified, nil
	case !f.exact:
		return "", ErrInexactCount
	}
	return query.WrapCount(f.modified, *f.params.Count)
}

// Stream executes the modified query and returns a reader over its result.
//
// The handle is prepared with the modified query, or its text is replaced
// when Schema prepared it with a different one. On failure the handle is
// released before the error is returned. The caller owns the stream and
// must release it.
func (f *Factory) Stream(ctx context.Context) (*Stream, error) {
	switch f.state {
	case StateReleased:
		return nil, ErrReleased
	case StateExecuting:
		return nil, ErrStreamOpen
	}

	text, err := f.executable()
	if err != nil {
		return nil, err
	}

	if err := f.prepare(ctx, text); err != nil {
		return nil, err
	}

	type result struct {
		reader array.RecordReader
		rows   int64
	}
	res, err := recovery.RecoverToValue(f.logger, OpExecuteQuery, func() (result, error) {
		reader, rows, err := f.stmt.ExecuteQuery(ctx)
		return result{reader: reader, rows: rows}, err
	})
	if err != nil {
		if res.reader != nil {
			res.reader.Release()
		}
		return nil, f.fail(OpExecuteQuery, err)
	}
	if res.reader == nil {
		return nil, f.fail(OpExecuteQuery, errors.New("driver returned no reader"))
	}

	// The reader is owned here until the stream takes it.
	s, err := recovery.RecoverToValue(f.logger, "wrap stream", func() (*Stream, error) {
		return newStream(f, res.reader, res.rows), nil
	})
	if err != nil {
		recovery.Recover(f.logger, "release reader", res.reader.Release)
		return nil, f.fail(OpExecuteQuery, err)
	}

	f.state = StateExecuting
	f.stream = s
	f.logger.Debug("Remote scan started", "query", text, "rows_affected", res.rows)
	return s, nil
}

// Close releases an open stream and the statement handle. It is safe to
// call more than once.
func (f *Factory) Close() error {
	if f.state == StateReleased {
		return nil
	}
	if s := f.stream; s != nil {
		s.releaseReader()
	}
	err := f.releaseStatement()
	f.state = StateReleased
	return err
}

// prepare makes sure the handle exists and holds text.
func (f *Factory) prepare(ctx context.Context, text string) error {
	if f.stmt == nil {
		stmt, err := recovery.RecoverToValue(f.logger, OpNewStatement, func() (Statement, error) {
			return f.conn.NewStatement(ctx)
		})
		if err != nil {
			return f.fail(OpNewStatement, err)
		}
		f.stmt = stmt
		f.prepared = ""
		f.state = StateUnprepared
	}

	if f.prepared == text {
		f.state = StatePrepared
		return nil
	}

	err := recovery.RecoverToError(f.logger, OpSetQuery, func() error {
		return f.stmt.SetQuery(ctx, text)
	})
	if err != nil {
		return f.fail(OpSetQuery, err)
	}
	if f.prepared != "" {
		f.logger.Debug("Statement re-prepared", "query", text)
	}
	f.prepared = text
	f.state = StatePrepared
	return nil
}

// fail releases the handle and annotates err with the operation.
func (f *Factory) fail(op string, err error) error {
	rerr := remoteError(op, err)
	f.logger.Error("Remote scan failed", "operation", op, "error", rerr)
	if relErr := f.releaseStatement(); relErr != nil {
		f.logger.Warn("Failed to release statement after error", "error", relErr)
	}
	f.state = StateFailed
	return rerr
}

func (f *Factory) releaseStatement() error {
	if f.stmt == nil {
		return nil
	}
	stmt := f.stmt
	f.stmt = nil
	f.prepared = ""
	err := recovery.RecoverToError(f.logger, OpRelease, stmt.Release)
	if err != nil {
		return remoteError(OpRelease, err)
	}
	return nil
}

// streamDone is called by the stream when it reaches the end of its data.
func (f *Factory) streamDone(s *Stream, err error) {
	if f.stream != s || f.state != StateExecuting {
		return
	}
	if err != nil {
		f.state = StateFailed
		f.logger.Error("Remote scan stream failed", "error", err)
		return
	}
	f.state = StateExhausted
}

// streamReleased is called once the stream released its reader. A handle
// whose stream failed is released here, after its reader.
func (f *Factory) streamReleased(s *Stream) {
	if f.stream != s {
		return
	}
	f.stream = nil
	switch f.state {
	case StateFailed:
		if err := f.releaseStatement(); err != nil {
			f.logger.Warn("Failed to release statement", "error", err)
		}
	case StateExecuting:
		f.state = StateExhausted
	}
}
