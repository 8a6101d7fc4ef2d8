// Package filter compiles engine table filters to SQL for a remote source.
//
// A filter set addresses filters by column index into a projected column
// list (Columns). The compiler turns each filter into a boolean SQL
// expression over a double-quoted identifier, or reports that the filter
// cannot be pushed so the engine applies it locally.
//
// # Basic Usage
//
//	c := filter.NewCompiler(nil)
//	res, err := c.CompileSet(filter.Set{
//	    0: &filter.ConstantComparison{Op: filter.CompareEqual, Value: filter.Int(42)},
//	}, filter.Columns{"id", "name"})
//	if err != nil {
//	    return err // invariant violation, a bug on the caller side
//	}
//	// res.SQL == `"id" = 42`
//
// # Unsupported Filters
//
// The compiler degrades instead of failing:
//   - For AND: skips children that cannot be pushed, keeps the others
//   - For OR: if any child cannot be pushed, skips the entire OR
//   - Unresolved Deferred filters compile to nothing
//
// The pushed fragment therefore selects a superset of the rows and the
// engine re-applies the full filter. Result.Exact tells whether the fragment
// is also a subset, which a remote LIMIT or COUNT requires.
//
// # Invariant Violations
//
// An empty InSet, a column index outside Columns, an empty column name or a
// constant of a type with no SQL literal (BLOB, INTERVAL, nested types) are
// reported as *InvariantError, matching ErrInvariant. They are never folded
// into "cannot push".
//
// # Literals
//
// Strings are single-quoted with ' and \ doubled and non-printable bytes
// written as \xHH. Times and timestamps are formatted to whole seconds and
// TIMESTAMP WITH TIME ZONE is written in UTC with a +00:00 offset. Constants
// with a fractional second are not pushed.
package filter
