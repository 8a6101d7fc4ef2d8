package sqldb

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Option configures a Conn.
type Option func(*Conn)

// WithAllocator sets the allocator for record batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *Conn) {
		if mem != nil {
			c.mem = mem
		}
	}
}

// WithBatchSize sets the number of rows per batch. Values below 1 keep the
// default.
func WithBatchSize(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}
