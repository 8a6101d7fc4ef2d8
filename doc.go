// Package remotescan pushes filters, projections, LIMIT and COUNT from a
// query engine into the SQL text sent to a remote database.
//
// A remote scan is described by a query string ("SELECT * FROM sales") or a
// table reference. During planning the engine binds the scan, learns its
// schema and runs the plan pass. During execution it hands the scan the
// columns it needs and the filters it holds, and the scan rewrites the query
// so the remote does the work:
//
//	SELECT * FROM sales
//	SELECT "id", "region" FROM sales WHERE "id" < 100 LIMIT 20
//
// Filters that cannot be expressed in SQL are skipped and applied by the
// engine. LIMIT, OFFSET and COUNT are only pushed when the WHERE clause is
// exact, so the remote never drops rows the engine would have kept.
//
// # Quick Start
//
//	conn, err := remotescan.OpenDuckDB(ctx, "analytics.db", remotescan.Config{})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	f, err := remotescan.NewQueryScan(conn, "SELECT * FROM sales", remotescan.Config{})
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	schema, err := f.Schema(ctx)
//	...
//	err = f.UpdatePushdownParameters([]string{"id", "region"}, filter.Set{
//	    0: &filter.ConstantComparison{Op: filter.CompareLessThan, Value: filter.Int(100)},
//	}, 20, 0)
//	...
//	stream, err := f.Stream(ctx)
//	if err != nil {
//	    return err
//	}
//	defer stream.Release()
//	for stream.Next() {
//	    process(stream.RecordBatch())
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// # Packages
//
//   - filter: filter model and the SQL compiler
//   - query: query text rewriting and structured SELECT building
//   - scan: the scan factory, its statement handle and the row stream
//   - plan: plan nodes and the LIMIT / COUNT pushdown pass
//   - remote/sqldb: remotes reached through database/sql (DuckDB, PostgreSQL)
//   - remote/flightsql: remotes reached through Arrow Flight SQL
//
// # Logging
//
// Every component logs through log/slog. Config.Logger is used when set;
// otherwise Config.LogLevel builds a text handler on stderr, and without
// either slog.Default() is used.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on the
// stream returned by Stream. Batches returned by RecordBatch are valid until
// the next call to Next; call Retain to keep one longer.
package remotescan
