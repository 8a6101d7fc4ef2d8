package remotescan

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"

	"github.com/hugr-lab/remote-scan/filter"
	"github.com/hugr-lab/remote-scan/plan"
	"github.com/hugr-lab/remote-scan/query"
	"github.com/hugr-lab/remote-scan/remote/flightsql"
	"github.com/hugr-lab/remote-scan/remote/sqldb"
	"github.com/hugr-lab/remote-scan/scan"
)

// NewQueryScan creates a scan that runs the user-supplied query text on conn.
// Options in opts are applied after the ones derived from config.
//
// Example:
//
//	f, err := remotescan.NewQueryScan(conn, "SELECT * FROM sales", remotescan.Config{})
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	schema, err := f.Schema(ctx)
func NewQueryScan(conn scan.Connection, q string, config Config, opts ...scan.Option) (*scan.Factory, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	return newScan(conn, scan.QueryText(q), config, opts)
}

// NewTableScan creates a scan of a whole remote table. Pushdown builds the
// query structurally instead of editing text.
func NewTableScan(conn scan.Connection, ref query.TableRef, config Config, opts ...scan.Option) (*scan.Factory, error) {
	if ref.Name == "" {
		return nil, ErrEmptyQuery
	}
	return newScan(conn, scan.Table(ref), config, opts)
}

func newScan(conn scan.Connection, src scan.Source, config Config, opts []scan.Option) (*scan.Factory, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	base := []scan.Option{
		scan.WithLogger(config.Logger),
		scan.WithPushdown(!config.DisablePushdown),
	}
	if len(config.ColumnMapping) > 0 {
		base = append(base, scan.WithCompiler(filter.NewCompiler(&filter.CompilerOptions{
			ColumnMapping: config.ColumnMapping,
		})))
	}

	f := scan.New(conn, src, append(base, opts...)...)
	config.Logger.Debug("Remote scan created",
		"query", f.OriginalQuery(),
		"pushdown", !config.DisablePushdown,
	)
	return f, nil
}

// NewOptimizer creates the plan pass that pushes LIMIT and COUNT into
// remote scans.
func NewOptimizer(config Config) (*plan.Optimizer, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return plan.New(config.Logger), nil
}

// OpenDuckDB opens a DuckDB database as a remote. An empty dsn opens an
// in-memory database.
func OpenDuckDB(ctx context.Context, dsn string, config Config) (*sqldb.Conn, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return sqldb.OpenDuckDB(ctx, dsn, sqlOptions(config)...)
}

// OpenPostgres connects to a PostgreSQL remote.
func OpenPostgres(ctx context.Context, connString string, config Config) (*sqldb.Conn, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return sqldb.OpenPostgres(ctx, connString, sqlOptions(config)...)
}

func sqlOptions(config Config) []sqldb.Option {
	return []sqldb.Option{
		sqldb.WithAllocator(config.Allocator),
		sqldb.WithBatchSize(config.BatchSize),
		sqldb.WithLogger(config.Logger),
	}
}

// DialFlightSQL connects to a Flight SQL remote. dialOpts replace the default
// insecure transport credentials.
func DialFlightSQL(addr string, config Config, dialOpts ...grpc.DialOption) (*flightsql.Conn, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: flight sql address is required", ErrInvalidConfig)
	}

	if len(dialOpts) == 0 {
		dialOpts = flightsql.DefaultDialOptions()
	}
	if config.MaxMessageSize > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(config.MaxMessageSize),
		))
	}

	return flightsql.Dial(addr,
		flightsql.WithAllocator(config.Allocator),
		flightsql.WithLogger(config.Logger),
		flightsql.WithDialOptions(dialOpts...),
		flightsql.WithBearerToken(config.BearerToken),
	)
}
