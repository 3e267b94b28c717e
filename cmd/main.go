package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/accolade/internal/adapters/assets"
	"github.com/okian/accolade/internal/adapters/http/api"
	"github.com/okian/accolade/internal/adapters/http/swagger"
	"github.com/okian/accolade/internal/adapters/lock"
	"github.com/okian/accolade/internal/adapters/objectstore"
	"github.com/okian/accolade/internal/adapters/repository"
	service "github.com/okian/accolade/internal/app"
	"github.com/okian/accolade/internal/config"
	"github.com/okian/accolade/internal/domain/award"
	"github.com/okian/accolade/internal/domain/render"
	"github.com/okian/accolade/pkg/logger"
	"github.com/okian/accolade/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// assetsRoute is where template artwork is served for live overlays.
const assetsRoute = "/assets"

func main() {
	once := flag.Bool("once", false, "run one award batch and one image regeneration pass, then exit")
	flag.Parse()

	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log, *once); err != nil {
		log.Error(ctx, "accolade exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the application and either executes a single pass or serves
// until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger, once bool) error {
	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(log)

	if once {
		return runOnce(ctx, app.svc, log)
	}

	if err := app.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer app.svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.routes(ctx, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// runOnce performs the work of one scheduled tick in the foreground.
func runOnce(ctx context.Context, svc *service.Service, log logger.Logger) error {
	sum, err := svc.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("award batch: %w", err)
	}
	regen, err := svc.RegenerateMissing(ctx)
	if err != nil {
		return fmt.Errorf("regenerate images: %w", err)
	}
	log.Info(ctx, "single pass finished",
		logger.Int("units", sum.Units),
		logger.Int("failures", len(sum.Failures)),
		logger.Int("regenerated", regen.Count(award.StatusRerendered)),
	)
	return nil
}

// application holds the wired collaborators and what must be released on exit.
type application struct {
	svc     *service.Service
	store   *repository.Store
	assets  *assets.Reader
	objects *objectstore.FSStore
	redis   *redis.Client
	baseURL string
}

// build constructs every adapter from cfg.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN,
		repository.WithLogger(log.Named("store")),
		repository.WithAutoMigrate(cfg.AutoMigrate),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app := &application{store: store, baseURL: cfg.MediaBaseURL}

	app.assets = assets.NewDir(cfg.AssetsDir)

	hinting, err := render.ParseHinting(cfg.FontHinting)
	if err != nil {
		app.close(log)
		return nil, err
	}
	rasterOpts := []render.RasterOption{
		render.WithHinting(hinting),
		render.WithLogger(log.Named("render")),
	}
	if cfg.FontPath != "" {
		ttf, err := app.assets.Read(ctx, cfg.FontPath)
		if err != nil {
			app.close(log)
			return nil, fmt.Errorf("read font %q: %w", cfg.FontPath, err)
		}
		rasterOpts = append(rasterOpts, render.WithFontData(ttf))
	}
	rasterizer, err := render.NewRasterizer(rasterOpts...)
	if err != nil {
		app.close(log)
		return nil, err
	}

	app.objects, err = objectstore.NewDir(cfg.MediaDir, cfg.MediaBaseURL, objectstore.WithLogger(log.Named("media")))
	if err != nil {
		app.close(log)
		return nil, err
	}

	issuer := award.NewIssuer(store, app.objects, app.assets, rasterizer,
		award.WithRetry(uint(cfg.RetryMaxTries), cfg.RetryInitialInterval()),
		award.WithLogger(log.Named("issuer")),
		award.WithKeyPrefix(cfg.MediaKeyPrefix),
	)

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = lock.NewRedis(app.redis, cfg.LockTTL(), log.Named("lock"))
	}

	app.svc = service.New(store, issuer, app.assets,
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithLocker(locker),
		service.WithSchedule(cfg.Schedule),
		service.WithFontPath(cfg.FontPath),
		service.WithAssetsBaseURL(assetsRoute),
	)
	return app, nil
}

// routes builds the HTTP mux: API, docs and the two static file trees.
func (a *application) routes(ctx context.Context, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	opts := []api.Option{
		api.WithLogger(log.Named("http")),
		api.WithStatic(assetsRoute, a.assets.Handler()),
	}
	// A media base URL on another host is served by that host.
	if strings.HasPrefix(a.baseURL, "/") {
		opts = append(opts, api.WithStatic(a.baseURL, a.objects.Handler()))
	}
	api.NewServer(a.svc, opts...).Register(ctx, mux)
	return mux
}

func (a *application) close(log logger.Logger) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn(context.Background(), "closing redis client failed", logger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
