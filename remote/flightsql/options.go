package flightsql

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
)

type config struct {
	mem      memory.Allocator
	logger   *slog.Logger
	dialOpts []grpc.DialOption
	credOpts []grpc.DialOption
}

// Option configures Dial.
type Option func(*config)

// WithAllocator sets the allocator for decoded record batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *config) {
		if mem != nil {
			c.mem = mem
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialOptions replaces the default gRPC dial options, e.g. to set
// transport credentials or message size limits.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *config) {
		c.dialOpts = append(c.dialOpts, opts...)
	}
}
