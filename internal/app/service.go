// Package service runs award batches and answers read queries for the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/accolade/internal/adapters/lock"
	"github.com/okian/accolade/internal/domain/award"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/pkg/logger"
)

const (
	defaultLockKey       = "accolade:batch"
	defaultAssetsBaseURL = "/assets"
)

// Store is the persistence the service reads inputs from and writes awards to.
type Store interface {
	award.RecipientStore

	ActiveDefinitions(ctx context.Context) ([]model.Definition, error)
	Templates(ctx context.Context) ([]model.Template, error)
	TemplateByKey(ctx context.Context, key string) (model.Template, error)
	Results(ctx context.Context) ([]model.CompetitionResult, error)

	RecipientByID(ctx context.Context, id string) (model.Achievement, error)
	AchievementsForCompetitor(ctx context.Context, competitorID string) ([]model.Achievement, error)
	RecipientsMissingImage(ctx context.Context) ([]model.Achievement, error)

	Ping(ctx context.Context) error
}

// Assets reads template artwork and reports on its presence.
type Assets interface {
	award.AssetReader
	Missing(ctx context.Context, paths []string) ([]string, error)
	Available(ctx context.Context) error
}

// Issuer turns one unit of work into a persisted award.
type Issuer interface {
	Issue(ctx context.Context, templates award.Templates, req award.Request) award.Outcome
	Rerender(ctx context.Context, templates award.Templates, a model.Achievement) award.Outcome
}

// Service implements the batch runner and the API dependencies.
type Service struct {
	mu sync.Mutex

	store  Store
	issuer Issuer
	assets Assets
	locker lock.Locker

	// Configuration
	workerCount   int
	lockKey       string
	schedule      string
	fontPath      string
	assetsBaseURL string

	// State
	cron    *cron.Cron
	cancel  context.CancelFunc
	started bool

	logger logger.Logger
}

// New constructs a Service over its collaborators.
func New(store Store, issuer Issuer, assets Assets, opts ...Option) *Service {
	s := &Service{
		store:         store,
		issuer:        issuer,
		assets:        assets,
		locker:        lock.NewLocal(),
		workerCount:   runtime.NumCPU() * 2,
		lockKey:       defaultLockKey,
		assetsBaseURL: defaultAssetsBaseURL,
		logger:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start schedules recurring batches. Without a schedule it only marks the
// service as started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.schedule != "" {
		runCtx, cancel := context.WithCancel(ctx)
		c := cron.New(cron.WithLocation(time.UTC))
		if _, err := c.AddFunc(s.schedule, func() { s.scheduled(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("%w: schedule %q: %v", ErrInvalidArgument, s.schedule, err)
		}
		c.Start()
		s.cron, s.cancel = c, cancel
	}

	s.started = true
	s.logger.Info(ctx, "award service started",
		logger.Int("workers", s.workerCount),
		logger.String("schedule", s.schedule),
	)
	return nil
}

// Stop cancels any running scheduled batch and waits for it to return.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.cron != nil {
		s.cancel()
		<-s.cron.Stop().Done()
		s.cron, s.cancel = nil, nil
	}

	s.started = false
	s.logger.Info(context.Background(), "award service stopped")
}

// scheduled runs the award batch followed by a pass over awards missing images.
func (s *Service) scheduled(ctx context.Context) {
	if _, err := s.RunBatch(ctx); err != nil {
		s.logger.Error(ctx, "scheduled batch failed", logger.Error(err))
		return
	}
	if _, err := s.RegenerateMissing(ctx); err != nil {
		s.logger.Error(ctx, "scheduled regeneration failed", logger.Error(err))
	}
}
