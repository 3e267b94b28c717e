package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/accolade/internal/config"
	"github.com/okian/accolade/internal/seed"
	"github.com/okian/accolade/pkg/logger"
)

// Default configuration constants.
const (
	defaultCompetitors = 200
	defaultPerCompet   = 4
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 5 * time.Minute
	defaultRunTimeout  = 15 * time.Minute
)

func main() {
	var (
		fixture     = flag.String("fixture", "", "YAML fixture to load (default: generate one)")
		output      = flag.String("output", "", "Write the fixture used to this YAML file")
		competitors = flag.Int("competitors", defaultCompetitors, "Competitors to generate")
		perComp     = flag.Int("results", defaultPerCompet, "Results per generated competitor")
		seedValue   = flag.Uint64("seed", 1, "Generator seed")
		season      = flag.String("season", "", "Season id stamped on generated results")
		noStore     = flag.Bool("no-store", false, "Do not write the fixture to the configured database")
		baseURL     = flag.String("url", "", "Server to trigger and verify, e.g. http://localhost:9080")
		verify      = flag.Bool("verify", true, "Compare served awards with the expected ones")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent achievement lookups")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	run := seed.Config{
		FixturePath: *fixture,
		OutputPath:  *output,
		Generate: seed.GenerateConfig{
			Competitors:          *competitors,
			ResultsPerCompetitor: *perComp,
			Seed:                 *seedValue,
			Season:               *season,
		},
		DBDriver: cfg.DBDriver,
		DBDSN:    cfg.DBDSN,
		BaseURL:  *baseURL,
		Verify:   *verify,
		Timeout:  *timeout,
		Workers:  *workers,
	}
	if *noStore {
		run.DBDSN = ""
	}

	if err := seed.Run(ctx, run, logger.Named("seed")); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		os.Exit(1)
	}
}
