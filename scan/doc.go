// Package scan runs a remote query lazily with late-bound pushdown.
//
// A Factory is created at bind time with a Connection and a Source. The
// engine asks it for the schema first, which prepares a statement with the
// original query. Projection, filters and limits arrive later, from the plan
// pass and right before execution; Stream compiles them into the query text
// and re-sets it on the same statement before executing.
//
// Pushdown never makes a scan fail for a shape it cannot handle. Filters
// that cannot be compiled are applied by the engine, queries that cannot be
// rewritten run unmodified. Remote failures are returned as *RemoteError
// after the statement is released; malformed filter trees are returned as
// filter invariant errors.
package scan
