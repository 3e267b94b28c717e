package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/accolade/internal/adapters/repository"
	"github.com/okian/accolade/pkg/logger"
)

// Config holds configuration for a seed run.
type Config struct {
	FixturePath string // YAML fixture to load; empty generates one
	OutputPath  string // where to write the fixture that was used
	Generate    GenerateConfig

	DBDriver string // store to load the fixture into; empty DSN skips loading
	DBDSN    string

	BaseURL string        // server to trigger and verify; empty skips both
	Verify  bool          // compare served awards with the expected ones
	Timeout time.Duration // per HTTP request
	Workers int           // concurrent achievement lookups
}

// Run builds or loads a fixture, stores it and optionally checks a server.
func Run(ctx context.Context, cfg Config, log logger.Logger) error {
	start := time.Now()

	fixture, err := fixtureFor(cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "fixture ready",
		logger.Int("templates", len(fixture.Templates)),
		logger.Int("definitions", len(fixture.Definitions)),
		logger.Int("results", len(fixture.Results)))

	if cfg.OutputPath != "" {
		if err := Save(cfg.OutputPath, fixture); err != nil {
			return err
		}
		log.Info(ctx, "fixture saved", logger.String("path", cfg.OutputPath))
	}

	if cfg.DBDSN != "" {
		if err := store(ctx, cfg, fixture, log); err != nil {
			return err
		}
	}

	if cfg.BaseURL != "" {
		if err := check(ctx, cfg, fixture, log); err != nil {
			return err
		}
	}

	log.Info(ctx, "seed completed", logger.Duration("duration", time.Since(start)))
	return nil
}

func fixtureFor(cfg Config) (Fixture, error) {
	if cfg.FixturePath != "" {
		return Load(cfg.FixturePath)
	}
	f := Generate(cfg.Generate)
	return f, f.Validate()
}

func store(ctx context.Context, cfg Config, f Fixture, log logger.Logger) error {
	s, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithLogger(log.Named("store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn(ctx, "closing store failed", logger.Error(err))
		}
	}()
	if err := Apply(ctx, s, f); err != nil {
		return fmt.Errorf("apply fixture: %w", err)
	}
	log.Info(ctx, "fixture stored", logger.String("driver", cfg.DBDriver))
	return nil
}

func check(ctx context.Context, cfg Config, f Fixture, log logger.Logger) error {
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return err
	}

	sum, err := client.RunBatch(ctx, "awards")
	if err != nil {
		return fmt.Errorf("trigger batch: %w", err)
	}
	log.Info(ctx, "batch finished",
		logger.Int("units", sum.Units),
		logger.Any("statuses", sum.Statuses),
		logger.Int("failures", len(sum.Failures)))
	for _, fl := range sum.Failures {
		log.Debug(ctx, "unit not awarded",
			logger.String("competitor", fl.CompetitorID),
			logger.String("group", fl.Group),
			logger.String("status", fl.Status),
			logger.String("reason", fl.Reason))
	}

	if !cfg.Verify {
		return nil
	}
	report, err := Verify(ctx, client, Expect(f), cfg.Workers)
	for _, p := range report.Problems {
		log.Warn(ctx, "award mismatch", logger.String("detail", p))
	}
	if err != nil {
		return err
	}
	log.Info(ctx, "awards verified",
		logger.Int("competitors", report.Competitors),
		logger.Int("matched", report.Matched))
	return nil
}
