package scan

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Connection is an opened connection to the remote source. The factory only
// creates statements from it; opening and closing it is the caller's job.
type Connection interface {
	// NewStatement creates an unprepared statement handle.
	NewStatement(ctx context.Context) (Statement, error)
}

// Statement is a remote statement handle.
//
// Implementations MUST allow SetQuery to be called again on a handle that
// was already prepared or executed, replacing the query text.
type Statement interface {
	// SetQuery sets the query text to prepare.
	SetQuery(ctx context.Context, query string) error

	// ExecuteSchema returns the result schema without fetching data.
	ExecuteSchema(ctx context.Context) (*arrow.Schema, error)

	// ExecuteQuery executes the query and returns a reader over the result.
	// rowsAffected is the remote row count, or -1 when unknown.
	// The caller owns the reader and must release it.
	ExecuteQuery(ctx context.Context) (reader array.RecordReader, rowsAffected int64, err error)

	// Release frees the handle. It is called exactly once.
	Release() error
}

// Operation names used in RemoteError.Op.
const (
	OpNewStatement  = "NewStatement"
	OpSetQuery      = "SetQuery"
	OpExecuteSchema = "ExecuteSchema"
	OpExecuteQuery  = "ExecuteQuery"
	OpRelease       = "Release"
)

// ErrRemote is matched by every *RemoteError.
var ErrRemote = errors.New("remote source error")

// RemoteError is a failure reported by the remote source or its driver.
type RemoteError struct {
	// Op is the statement operation that failed.
	Op string

	// Message is the remote source's own error text, when available.
	Message string

	// Err is the underlying driver error.
	Err error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return "remote " + e.Op + ": " + msg
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRemote) match.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// remoteError annotates err with op. Errors that already are a *RemoteError
// keep their message and get the factory's operation name.
func remoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return &RemoteError{Op: op, Message: re.Message, Err: re.Err}
	}
	return &RemoteError{Op: op, Message: err.Error(), Err: err}
}
