package scan

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/remote-scan/internal/recovery"
)

// Stream is the row-batch reader of a remote scan. It owns the driver's
// reader and reports its end back to the factory. Release is idempotent
// once the reference count reaches zero.
type Stream struct {
	refCount atomic.Int64
	factory  *Factory
	reader   array.RecordReader
	schema   *arrow.Schema
	rows     int64
	done     bool
	released bool
}

var _ array.RecordReader = (*Stream)(nil)

func newStream(f *Factory, reader array.RecordReader, rows int64) *Stream {
	s := &Stream{
		factory: f,
		reader:  reader,
		schema:  reader.Schema(),
		rows:    rows,
	}
	s.refCount.Store(1)
	return s
}

// Retain increases the reference count.
func (s *Stream) Retain() {
	s.refCount.Add(1)
}

// Release decreases the reference count. At zero the driver reader is
// released.
func (s *Stream) Release() {
	if s.refCount.Add(-1) == 0 {
		s.releaseReader()
	}
}

func (s *Stream) releaseReader() {
	if s.released {
		return
	}
	s.released = true
	recovery.Recover(s.factory.logger, "release reader", s.reader.Release)
	s.factory.streamReleased(s)
}

// Schema returns the schema of the result.
func (s *Stream) Schema() *arrow.Schema {
	return s.schema
}

// Next advances to the next batch.
func (s *Stream) Next() bool {
	if s.done || s.released {
		return false
	}
	if s.reader.Next() {
		return true
	}
	s.done = true
	s.factory.streamDone(s, s.reader.Err())
	return false
}

// RecordBatch returns the current batch. It is only valid until the next
// call to Next; callers that keep it must retain it.
func (s *Stream) RecordBatch() arrow.RecordBatch {
	if s.released {
		return nil
	}
	return s.reader.RecordBatch()
}

// Record returns the current batch.
//
// Deprecated: use RecordBatch.
func (s *Stream) Record() arrow.RecordBatch {
	return s.RecordBatch()
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	if s.released {
		return nil
	}
	return s.reader.Err()
}

// RowsAffected returns the row count reported by the remote at execution,
// or -1 when unknown.
func (s *Stream) RowsAffected() int64 {
	return s.rows
}
