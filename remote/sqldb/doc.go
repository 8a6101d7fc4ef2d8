// Package sqldb implements scan.Connection over database/sql.
//
// Rows are read with the driver's scanner and appended to Arrow record
// batches. OpenDuckDB and OpenPostgres open the two supported remotes; New
// wraps any *sql.DB whose driver reports column type names.
//
// Column types are mapped by their database type name. DECIMAL, HUGEINT,
// UUID, INTERVAL and nested types are returned as strings.
package sqldb
