package award

import (
	"strings"
	"time"

	"github.com/okian/accolade/pkg/logger"
)

// Option applies a configuration option to the Issuer.
type Option func(*Issuer)

// WithLogger sets a custom logger for the issuer.
func WithLogger(l logger.Logger) Option {
	return func(i *Issuer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithClock overrides the time source used for award timestamps and object keys.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithRetry bounds storage retries. maxTries counts the first attempt.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(i *Issuer) {
		if maxTries > 0 {
			i.maxTries = maxTries
		}
		if initial > 0 {
			i.initialInterval = initial
		}
	}
}

// WithKeyPrefix sets the object key prefix for rendered images.
func WithKeyPrefix(prefix string) Option {
	return func(i *Issuer) {
		if prefix = strings.Trim(prefix, "/ "); prefix != "" {
			i.keyPrefix = prefix
		}
	}
}
