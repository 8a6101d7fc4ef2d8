package scan

import (
	"log/slog"

	"github.com/hugr-lab/remote-scan/filter"
	"github.com/hugr-lab/remote-scan/query"
)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithPushdown enables or disables pushdown. When disabled, the original
// query is always executed. Enabled by default.
func WithPushdown(enabled bool) Option {
	return func(f *Factory) {
		f.pushdown = enabled
	}
}

// WithCompiler sets the filter compiler, e.g. one with a column mapping.
func WithCompiler(c *filter.Compiler) Option {
	return func(f *Factory) {
		if c != nil {
			f.compiler = c
		}
	}
}

// WithCountSchema reserves a single-column count schema at bind. Schema then
// describes the count query and the plan pass may push a matching COUNT.
func WithCountSchema(count query.CountSpec) Option {
	return func(f *Factory) {
		f.countSchema = &count
	}
}

// WithColumns sets the bound column names that filter indexes address when
// no projection is pushed. Without it the names are taken from Schema.
func WithColumns(cols filter.Columns) Option {
	return func(f *Factory) {
		f.columns = cols
	}
}
