package repository

import "github.com/okian/accolade/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAutoMigrate controls whether Open creates or updates the schema.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) {
		s.autoMigrate = enabled
	}
}
