// Package recovery converts panics in remote collaborators into errors.
// Statement handles and record readers come from driver code outside this
// module; a panic there must not leak the handle the scan owns.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic is matched by errors produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// RecoverToError wraps a function call with panic recovery.
// If the function panics, the panic is logged with its stack and returned as
// an error wrapping ErrPanic.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "SetQuery", func() error {
//	    return stmt.SetQuery(ctx, text)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()

			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(stack),
			)

			err = fmt.Errorf("%w: %s: %v", ErrPanic, operation, r)
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns zero value and an error wrapping ErrPanic.
//
// Example:
//
//	reader, err := recovery.RecoverToValue(logger, "ExecuteQuery", func() (array.RecordReader, error) {
//	    return stmt.ExecuteQuery(ctx)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()

			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(stack),
			)

			var zero T
			result = zero
			err = fmt.Errorf("%w: %s: %v", ErrPanic, operation, r)
		}
	}()

	return fn()
}

// Recover wraps a void function with panic recovery.
// Logs the panic but doesn't return an error.
// Use for cleanup operations where errors can't be returned.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()

			logger.Error("Panic recovered in cleanup",
				"operation", operation,
				"panic", r,
				"stack", string(stack),
			)
		}
	}()

	fn()
}
