package sqldb

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// reader reads sql.Rows in batches of batchSize rows.
type reader struct {
	refCount  atomic.Int64
	rows      *sql.Rows
	schema    *arrow.Schema
	builder   *array.RecordBuilder
	batchSize int
	current   arrow.RecordBatch
	values    []any
	ptrs      []any
	err       error
	done      bool
}

var _ array.RecordReader = (*reader)(nil)

func newReader(rows *sql.Rows, schema *arrow.Schema, mem memory.Allocator, batchSize int) *reader {
	n := schema.NumFields()
	r := &reader{
		rows:      rows,
		schema:    schema,
		builder:   array.NewRecordBuilder(mem, schema),
		batchSize: batchSize,
		values:    make([]any, n),
		ptrs:      make([]any, n),
	}
	for i := range r.values {
		r.ptrs[i] = &r.values[i]
	}
	r.refCount.Store(1)
	return r
}

func (r *reader) Schema() *arrow.Schema          { return r.schema }
func (r *reader) RecordBatch() arrow.RecordBatch { return r.current }
func (r *reader) Record() arrow.RecordBatch      { return r.current }
func (r *reader) Err() error                     { return r.err }

func (r *reader) Retain() { r.refCount.Add(1) }

func (r *reader) Release() {
	if r.refCount.Add(-1) != 0 {
		return
	}
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	r.builder.Release()
	r.rows.Close()
}

func (r *reader) Next() bool {
	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
	if r.done {
		return false
	}

	n := 0
	for n < r.batchSize && r.rows.Next() {
		if err := r.rows.Scan(r.ptrs...); err != nil {
			return r.fail(fmt.Errorf("sqldb: scan: %w", err))
		}
		for i, v := range r.values {
			if err := appendValue(r.builder.Field(i), v); err != nil {
				return r.fail(fmt.Errorf("column %q: %w", r.schema.Field(i).Name, err))
			}
		}
		n++
	}

	if n < r.batchSize {
		r.done = true
		if err := r.rows.Err(); err != nil {
			return r.fail(fmt.Errorf("sqldb: rows: %w", err))
		}
	}
	if n == 0 {
		return false
	}
	r.current = r.builder.NewRecordBatch()
	return true
}

// fail discards the partial batch and ends the reader with err.
func (r *reader) fail(err error) bool {
	r.done = true
	r.err = err
	r.builder.NewRecordBatch().Release()
	return false
}
