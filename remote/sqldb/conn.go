package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/hugr-lab/remote-scan/scan"
)

// DefaultBatchSize is the number of rows per record batch.
const DefaultBatchSize = 2048

// ErrNoQuery is returned when a statement is executed before SetQuery.
var ErrNoQuery = errors.New("sqldb: no query set")

// Conn is a scan.Connection over a database/sql pool.
type Conn struct {
	db        *sql.DB
	pool      *pgxpool.Pool
	owned     bool
	mem       memory.Allocator
	batchSize int
	logger    *slog.Logger
}

var _ scan.Connection = (*Conn)(nil)

// New wraps an opened database. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) *Conn {
	c := &Conn{
		db:        db,
		mem:       memory.DefaultAllocator,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenDuckDB opens a DuckDB database. An empty dsn opens an in-memory
// database. Close releases it.
func OpenDuckDB(ctx context.Context, dsn string, opts ...Option) (*Conn, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open duckdb: %w", err)
	}
	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb: ping duckdb: %w", err)
	}
	c := New(db, opts...)
	c.owned = true
	return c, nil
}

// OpenPostgres connects to PostgreSQL through a pgx pool. Close releases
// the pool.
func OpenPostgres(ctx context.Context, connString string, opts ...Option) (*Conn, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open postgres: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	if err := ping(ctx, db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("sqldb: ping postgres: %w", err)
	}
	c := New(db, opts...)
	c.pool = pool
	c.owned = true
	return c, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// DB returns the underlying database.
func (c *Conn) DB() *sql.DB { return c.db }

// Close closes the database if it was opened by this package.
func (c *Conn) Close() error {
	if !c.owned {
		return nil
	}
	err := c.db.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

// NewStatement returns an unprepared statement.
func (c *Conn) NewStatement(context.Context) (scan.Statement, error) {
	return &statement{conn: c}, nil
}

// statement prepares its query on the pool. SetQuery closes the previous
// prepared statement and prepares the new text.
type statement struct {
	conn  *Conn
	query string
	stmt  *sql.Stmt
}

func (s *statement) SetQuery(ctx context.Context, query string) error {
	stmt, err := s.conn.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqldb: prepare: %w", err)
	}
	if s.stmt != nil {
		if err := s.stmt.Close(); err != nil {
			s.conn.logger.Warn("Failed to close replaced statement", "error", err)
		}
	}
	s.stmt = stmt
	s.query = query
	return nil
}

// ExecuteSchema runs the query with no rows and maps the column types.
func (s *statement) ExecuteSchema(ctx context.Context) (*arrow.Schema, error) {
	if s.stmt == nil {
		return nil, ErrNoQuery
	}
	q := strings.TrimRight(strings.TrimSpace(s.query), "; \t\n")
	rows, err := s.conn.db.QueryContext(ctx, "SELECT * FROM ("+q+") AS schema_probe LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("sqldb: schema: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("sqldb: column types: %w", err)
	}
	return schemaOf(types), nil
}

// ExecuteQuery runs the prepared query and streams its rows as batches.
// The row count is not known in advance.
func (s *statement) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	if s.stmt == nil {
		return nil, -1, ErrNoQuery
	}
	rows, err := s.stmt.QueryContext(ctx)
	if err != nil {
		return nil, -1, fmt.Errorf("sqldb: query: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, -1, fmt.Errorf("sqldb: column types: %w", err)
	}
	s.conn.logger.Debug("Query executed", "query", s.query, "columns", len(types))
	return newReader(rows, schemaOf(types), s.conn.mem, s.conn.batchSize), -1, nil
}

func (s *statement) Release() error {
	if s.stmt == nil {
		return nil
	}
	err := s.stmt.Close()
	s.stmt = nil
	return err
}
