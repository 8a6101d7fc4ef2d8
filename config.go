package remotescan

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// EnvDisablePushdown names the environment variable that turns pushdown off
// for every scan when set to a true value ("1", "true", ...).
const EnvDisablePushdown = "REMOTE_SCAN_DISABLE_PUSHDOWN"

// Config contains configuration shared by the scans, adapters and the plan
// pass created by this package.
type Config struct {
	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// DisablePushdown makes every scan execute its original query.
	// OPTIONAL: false by default. The EnvDisablePushdown variable overrides it.
	DisablePushdown bool

	// ColumnMapping renames engine column names to remote column names in
	// pushed projections and filters.
	// OPTIONAL: If nil, names are used as is.
	ColumnMapping map[string]string

	// BatchSize is the number of rows per record batch read from database/sql
	// remotes.
	// OPTIONAL: If 0, uses sqldb.DefaultBatchSize. MUST NOT be negative.
	BatchSize int

	// MaxMessageSize sets maximum gRPC message size in bytes for Flight SQL
	// remotes.
	// OPTIONAL: If 0, uses gRPC default (4MB). MUST NOT be negative.
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int

	// BearerToken is sent as "authorization: Bearer <token>" on every call
	// to Flight SQL remotes.
	// OPTIONAL: If empty, calls are unauthenticated.
	BearerToken string
}

// Standard errors returned by remotescan package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid remote scan config")

	// ErrNilConnection indicates a scan was created without a connection.
	ErrNilConnection = errors.New("remote connection is required")

	// ErrEmptyQuery indicates a scan was created with empty query text or
	// table name.
	ErrEmptyQuery = errors.New("remote query is required")
)

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be >= 0, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("%w: max message size must be >= 0, got %d", ErrInvalidConfig, c.MaxMessageSize)
	}
	for from, to := range c.ColumnMapping {
		if from == "" || to == "" {
			return fmt.Errorf("%w: column mapping %q -> %q has an empty name", ErrInvalidConfig, from, to)
		}
	}
	return nil
}

// withDefaults validates c and fills the optional fields.
func (c Config) withDefaults() (Config, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}

	if c.Allocator == nil {
		c.Allocator = memory.DefaultAllocator
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
		if c.LogLevel != nil {
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: *c.LogLevel,
			})
			c.Logger = slog.New(handler)
		}
	}

	if v, ok := os.LookupEnv(EnvDisablePushdown); ok {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			c.Logger.Warn("Ignoring invalid pushdown override", "variable", EnvDisablePushdown, "value", v)
		} else {
			c.DisablePushdown = disabled
		}
	}
	return c, nil
}
