package worker

import (
	"github.com/okian/accolade/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*config)

type config struct {
	prefix string
	logger logger.Logger
}

// WithName sets the prefix used to name workers in logs.
func WithName(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(logger logger.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
