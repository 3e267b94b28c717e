package service

import (
	"strings"

	"github.com/okian/accolade/internal/adapters/lock"
	"github.com/okian/accolade/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of issuance workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocker sets the lock that keeps batches from overlapping.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLockKey overrides the batch lock key.
func WithLockKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.lockKey = key
		}
	}
}

// WithSchedule sets the cron spec for scheduled batches. Empty disables scheduling.
func WithSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = strings.TrimSpace(spec)
	}
}

// WithFontPath names the font asset that must be present for rendering.
func WithFontPath(path string) Option {
	return func(s *Service) {
		s.fontPath = path
	}
}

// WithAssetsBaseURL sets the public prefix under which template artwork is served.
func WithAssetsBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.assetsBaseURL = strings.TrimRight(url, "/")
		}
	}
}
