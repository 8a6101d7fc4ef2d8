package scan

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String},
}, nil)

// fakeConn records every statement it creates.
type fakeConn struct {
	mem     memory.Allocator
	batches int
	newErr  error
	stmts   []*fakeStatement

	// statement behavior
	setErr     error
	schemaErr  error
	execErr    error
	execPanic  bool
	streamErr  error
	releaseErr error
}

func newFakeConn(mem memory.Allocator) *fakeConn {
	return &fakeConn{mem: mem, batches: 2}
}

func (c *fakeConn) NewStatement(context.Context) (Statement, error) {
	if c.newErr != nil {
		return nil, c.newErr
	}
	s := &fakeStatement{conn: c}
	c.stmts = append(c.stmts, s)
	return s, nil
}

func (c *fakeConn) last() *fakeStatement {
	return c.stmts[len(c.stmts)-1]
}

type fakeStatement struct {
	conn     *fakeConn
	queries  []string
	executed []string
	released int
}

func (s *fakeStatement) current() string {
	if len(s.queries) == 0 {
		return ""
	}
	return s.queries[len(s.queries)-1]
}

func (s *fakeStatement) SetQuery(_ context.Context, q string) error {
	if s.conn.setErr != nil {
		return s.conn.setErr
	}
	s.queries = append(s.queries, q)
	return nil
}

func (s *fakeStatement) ExecuteSchema(context.Context) (*arrow.Schema, error) {
	if s.conn.schemaErr != nil {
		return nil, s.conn.schemaErr
	}
	return testSchema, nil
}

func (s *fakeStatement) ExecuteQuery(context.Context) (array.RecordReader, int64, error) {
	if s.conn.execPanic {
		panic("driver crashed")
	}
	if s.conn.execErr != nil {
		return nil, -1, &RemoteError{Op: "execute", Message: "SQL compilation error: invalid identifier", Err: s.conn.execErr}
	}
	s.executed = append(s.executed, s.current())

	if s.conn.streamErr != nil {
		return &failingReader{err: s.conn.streamErr}, -1, nil
	}

	recs := make([]arrow.RecordBatch, 0, s.conn.batches)
	for i := 0; i < s.conn.batches; i++ {
		recs = append(recs, makeBatch(s.conn.mem, int64(i*10), 10))
	}
	reader, err := array.NewRecordReader(testSchema, recs)
	for _, rec := range recs {
		rec.Release()
	}
	if err != nil {
		return nil, -1, err
	}
	return reader, int64(10 * s.conn.batches), nil
}

func (s *fakeStatement) Release() error {
	s.released++
	return s.conn.releaseErr
}

func makeBatch(mem memory.Allocator, start int64, n int) arrow.RecordBatch {
	b := array.NewRecordBuilder(mem, testSchema)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Field(0).(*array.Int64Builder).Append(start + int64(i))
		b.Field(1).(*array.StringBuilder).Append("row")
	}
	return b.NewRecordBatch()
}

// failingReader ends immediately with an error.
type failingReader struct {
	refs int64
	err  error
}

func (r *failingReader) Retain()                         { r.refs++ }
func (r *failingReader) Release()                        { r.refs-- }
func (r *failingReader) Schema() *arrow.Schema           { return testSchema }
func (r *failingReader) Next() bool                      { return false }
func (r *failingReader) Record() arrow.RecordBatch       { return nil }
func (r *failingReader) RecordBatch() arrow.RecordBatch  { return nil }
func (r *failingReader) Err() error                      { return r.err }

var errNetwork = errors.New("connection reset by peer")
