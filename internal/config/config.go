// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New(ctx) returns defaults; Load(ctx) layers file and env on top.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver is sqlite or mysql; DBDSN is passed to the driver as-is.
	DBDriver string `koanf:"db_driver"`
	DBDSN    string `koanf:"db_dsn"`

	// AutoMigrate creates or updates the schema on startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// AssetsDir is the root that template base_image_path values resolve against.
	AssetsDir string `koanf:"assets_dir"`

	// FontPath optionally points at a TTF/OTF inside AssetsDir used for award text.
	FontPath string `koanf:"font_path"`

	// FontHinting is none, vertical or full.
	FontHinting string `koanf:"font_hinting"`

	// MediaDir stores rendered images; MediaBaseURL is the public prefix they are served under.
	MediaDir     string `koanf:"media_dir"`
	MediaBaseURL string `koanf:"media_base_url"`

	// MediaKeyPrefix is the directory rendered images are written under.
	MediaKeyPrefix string `koanf:"media_key_prefix"`

	// WorkerCount bounds parallel award issuance.
	WorkerCount int `koanf:"worker_count"`

	// RetryMaxTries and RetryInitialIntervalMS bound storage retries.
	RetryMaxTries          int `koanf:"retry_max_tries"`
	RetryInitialIntervalMS int `koanf:"retry_initial_interval_ms"`

	// Schedule is a cron spec for the batch; empty disables scheduling.
	Schedule string `koanf:"schedule"`

	// RedisAddr enables cross-process batch locking when set.
	RedisAddr      string `koanf:"redis_addr"`
	LockTTLSeconds int    `koanf:"lock_ttl_seconds"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		DBDriver:               "sqlite",
		DBDSN:                  "data/accolade.db",
		AutoMigrate:            true,
		AssetsDir:              "assets",
		FontHinting:            "full",
		MediaDir:               "media",
		MediaBaseURL:           "/media",
		MediaKeyPrefix:         "achievements",
		WorkerCount:            runtime.NumCPU() * 2,
		RetryMaxTries:          3,
		RetryInitialIntervalMS: 200,
		Schedule:               "0 3 * * *",
		LockTTLSeconds:         300,
	}
}

// RetryInitialInterval returns RetryInitialIntervalMS as a duration.
func (c *Config) RetryInitialInterval() time.Duration {
	return time.Duration(c.RetryInitialIntervalMS) * time.Millisecond
}

// LockTTL returns LockTTLSeconds as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "sqlite" && c.DBDriver != "mysql":
		return fmt.Errorf("%w: db_driver must be sqlite or mysql, got %q", ErrInvalidConfig, c.DBDriver)
	case strings.TrimSpace(c.DBDSN) == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.FontHinting != "none" && c.FontHinting != "vertical" && c.FontHinting != "full":
		return fmt.Errorf("%w: font_hinting must be none, vertical or full, got %q", ErrInvalidConfig, c.FontHinting)
	case strings.Trim(c.MediaKeyPrefix, "/ ") == "":
		return fmt.Errorf("%w: media_key_prefix must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.RetryMaxTries < 1:
		return fmt.Errorf("%w: retry_max_tries must be at least 1", ErrInvalidConfig)
	case c.RetryInitialIntervalMS < 0:
		return fmt.Errorf("%w: retry_initial_interval_ms must not be negative", ErrInvalidConfig)
	case c.RedisAddr != "" && c.LockTTLSeconds < 1:
		return fmt.Errorf("%w: lock_ttl_seconds must be at least 1", ErrInvalidConfig)
	}
	return nil
}
