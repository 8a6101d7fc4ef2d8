package flightsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/remote-scan/scan"
)

// ErrNoQuery is returned when a statement is executed before SetQuery.
var ErrNoQuery = errors.New("flightsql: no query set")

// Conn is a scan.Connection to a Flight SQL server.
type Conn struct {
	client *flightsql.Client
	mem    memory.Allocator
	logger *slog.Logger
}

var _ scan.Connection = (*Conn)(nil)

// Dial connects to the Flight SQL server at addr. Without dial options the
// connection uses insecure transport credentials. Credentials set with
// WithBearerToken are kept when the dial options are replaced.
func Dial(addr string, opts ...Option) (*Conn, error) {
	cfg := &config{
		mem:    memory.DefaultAllocator,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	dialOpts := cfg.dialOpts
	if len(dialOpts) == 0 {
		dialOpts = DefaultDialOptions()
	}
	dialOpts = append(dialOpts, cfg.credOpts...)

	client, err := flightsql.NewClient(addr, nil, nil, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("flightsql: dial %s: %w", addr, err)
	}
	client.Alloc = cfg.mem

	cfg.logger.Debug("Flight SQL client created", "address", addr)
	return &Conn{client: client, mem: cfg.mem, logger: cfg.logger}, nil
}

// Close closes the client connection.
func (c *Conn) Close() error {
	return c.client.Close()
}

// DefaultDialOptions returns the dial options used when none are given:
// insecure transport credentials.
func DefaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

// NewStatement returns an unprepared statement.
func (c *Conn) NewStatement(context.Context) (scan.Statement, error) {
	return &statement{conn: c}, nil
}

// statement wraps a server-side prepared statement. Flight SQL has no way to
// change the text of a prepared statement, so SetQuery closes it and
// prepares a new one.
type statement struct {
	conn     *Conn
	prepared *flightsql.PreparedStatement
}

func (s *statement) SetQuery(ctx context.Context, query string) error {
	prepared, err := s.conn.client.Prepare(ctx, query)
	if err != nil {
		return remoteError(scan.OpSetQuery, err)
	}
	if err := s.close(ctx); err != nil {
		s.conn.logger.Warn("Failed to close replaced prepared statement", "error", err)
	}
	s.prepared = prepared
	return nil
}

func (s *statement) ExecuteSchema(ctx context.Context) (*arrow.Schema, error) {
	if s.prepared == nil {
		return nil, ErrNoQuery
	}
	if schema := s.prepared.DatasetSchema(); schema != nil {
		return schema, nil
	}
	res, err := s.prepared.GetSchema(ctx)
	if err != nil {
		return nil, remoteError(scan.OpExecuteSchema, err)
	}
	schema, err := flight.DeserializeSchema(res.GetSchema(), s.conn.mem)
	if err != nil {
		return nil, fmt.Errorf("flightsql: decode schema: %w", err)
	}
	return schema, nil
}

// ExecuteQuery executes the prepared statement and reads its endpoints in
// order. The row count is the server's TotalRecords, -1 when unknown.
func (s *statement) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	if s.prepared == nil {
		return nil, -1, ErrNoQuery
	}
	info, err := s.prepared.Execute(ctx)
	if err != nil {
		return nil, -1, remoteError(scan.OpExecuteQuery, err)
	}

	var schema *arrow.Schema
	if len(info.GetSchema()) > 0 {
		if schema, err = flight.DeserializeSchema(info.GetSchema(), s.conn.mem); err != nil {
			return nil, -1, fmt.Errorf("flightsql: decode schema: %w", err)
		}
	}
	r, err := newEndpointReader(ctx, s.conn.client, info.GetEndpoint(), schema)
	if err != nil {
		return nil, -1, err
	}
	return r, info.GetTotalRecords(), nil
}

func (s *statement) Release() error {
	return s.close(context.Background())
}

func (s *statement) close(ctx context.Context) error {
	if s.prepared == nil {
		return nil
	}
	p := s.prepared
	s.prepared = nil
	if err := p.Close(ctx); err != nil {
		return remoteError(scan.OpRelease, err)
	}
	return nil
}

// remoteError keeps the server's message from a gRPC status.
func remoteError(op string, err error) error {
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	return &scan.RemoteError{Op: op, Message: msg, Err: err}
}
