package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/accolade/internal/adapters/lock"
	"github.com/okian/accolade/internal/adapters/mq/queue"
	"github.com/okian/accolade/internal/adapters/mq/worker"
	"github.com/okian/accolade/internal/domain/aggregate"
	"github.com/okian/accolade/internal/domain/award"
	"github.com/okian/accolade/internal/domain/classify"
	"github.com/okian/accolade/pkg/logger"
	"github.com/okian/accolade/pkg/metrics"
)

// Batch kinds.
const (
	KindAwards     = "awards"
	KindRegenerate = "regenerate"
)

// Failure describes one unit of work that was skipped or failed.
type Failure struct {
	CompetitorID string       `json:"competitor_id"`
	Group        string       `json:"group"`
	Status       award.Status `json:"status"`
	Reason       string       `json:"reason"`
	Error        string       `json:"error"`
}

// Summary reports what a batch did.
type Summary struct {
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`

	ResultsSeen        int `json:"results_seen"`
	ResultsEligible    int `json:"results_eligible"`
	ResultsClassified  int `json:"results_classified"`
	DefinitionsIgnored int `json:"definitions_ignored"`
	Competitors        int `json:"competitors"`
	Units              int `json:"units"`
	NotDispatched      int `json:"not_dispatched"`

	Statuses map[award.Status]int `json:"statuses"`
	Failures []Failure            `json:"failures,omitempty"`
}

// Count returns how many units ended with status.
func (s Summary) Count(status award.Status) int {
	return s.Statuses[status]
}

func (s *Summary) record(competitorID, group string, out award.Outcome) {
	if out.Status == "" {
		s.NotDispatched++
		return
	}
	s.Statuses[out.Status]++
	if out.Status == award.StatusSkipped || out.Status == award.StatusFailed {
		f := Failure{CompetitorID: competitorID, Group: group, Status: out.Status, Reason: award.SkipReason(out.Err)}
		if out.Err != nil {
			f.Error = out.Err.Error()
		}
		s.Failures = append(s.Failures, f)
	}
}

// RunBatch evaluates every scored result and issues awards. It fails only when
// the batch lock is held or its inputs cannot be read; per-unit failures are
// reported in the Summary.
func (s *Service) RunBatch(ctx context.Context) (Summary, error) {
	return s.exclusive(ctx, KindAwards, s.runAwards)
}

// RegenerateMissing re-renders every award that has no stored image.
func (s *Service) RegenerateMissing(ctx context.Context) (Summary, error) {
	return s.exclusive(ctx, KindRegenerate, s.runRegenerate)
}

func (s *Service) exclusive(ctx context.Context, kind string, run func(context.Context, *Summary) error) (Summary, error) {
	start := time.Now()
	sum := Summary{Kind: kind, StartedAt: start.UTC(), Statuses: make(map[award.Status]int)}

	lease, err := s.locker.Obtain(ctx, s.lockKey)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			metrics.RecordBatch(kind, "busy", 0)
			return sum, fmt.Errorf("%w: %w", ErrBatchRunning, err)
		}
		metrics.RecordBatch(kind, "error", 0)
		return sum, fmt.Errorf("obtain batch lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, "failed to release batch lock", logger.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-lease.Lost():
			s.logger.Warn(ctx, "batch lock lost; cancelling", logger.String("kind", kind))
			cancel(lock.ErrLost)
		case <-runCtx.Done():
		}
	}()

	s.logger.Info(ctx, "batch started", logger.String("kind", kind))
	err = run(runCtx, &sum)
	select {
	case <-lease.Lost():
		cancel(lock.ErrLost)
	default:
	}
	if cause := context.Cause(runCtx); errors.Is(cause, lock.ErrLost) {
		err = errors.Join(err, fmt.Errorf("%w: %w", ErrLockLost, cause))
	}
	elapsed := time.Since(start)
	sum.DurationMS = elapsed.Milliseconds()

	result := "ok"
	switch {
	case errors.Is(err, ErrLockLost):
		result = "lock_lost"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result = "cancelled"
	case err != nil:
		result = "error"
	}
	metrics.RecordBatch(kind, result, elapsed)

	fields := []logger.Field{
		logger.String("kind", kind),
		logger.String("result", result),
		logger.Duration("elapsed", elapsed),
		logger.Int("units", sum.Units),
		logger.Int("awarded", sum.Count(award.StatusAwarded)),
		logger.Int("upgraded", sum.Count(award.StatusUpgraded)),
		logger.Int("rerendered", sum.Count(award.StatusRerendered)),
		logger.Int("kept", sum.Count(award.StatusKept)),
		logger.Int("skipped", sum.Count(award.StatusSkipped)),
		logger.Int("failed", sum.Count(award.StatusFailed)),
	}
	if err != nil {
		s.logger.Error(ctx, "batch finished with error", append(fields, logger.Error(err))...)
	} else {
		s.logger.Info(ctx, "batch finished", fields...)
	}
	return sum, err
}

func (s *Service) runAwards(ctx context.Context, sum *Summary) error {
	defs, err := s.store.ActiveDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("%w: definitions: %w", ErrLoadInputs, err)
	}
	tpls, err := s.store.Templates(ctx)
	if err != nil {
		return fmt.Errorf("%w: templates: %w", ErrLoadInputs, err)
	}
	results, err := s.store.Results(ctx)
	if err != nil {
		return fmt.Errorf("%w: results: %w", ErrLoadInputs, err)
	}
	metrics.UpdateDefinitionsLoaded(len(defs))
	metrics.RecordResultsLoaded(len(results))

	groups, ignored := classify.BuildGroups(defs)
	for _, d := range ignored {
		s.logger.Warn(ctx, "definition ignored: unsupported operator",
			logger.String("achievement", d.ID), logger.String("operator", string(d.Operator)))
	}
	c := classify.New(groups)

	agg := aggregate.Aggregate(results, c)
	for group, n := range agg.ClassifiedByGroup() {
		metrics.RecordResultClassified(group, n)
	}
	stats := agg.Stats()
	sum.ResultsSeen = stats.Seen
	sum.ResultsEligible = stats.Eligible
	sum.ResultsClassified = stats.Classified
	sum.DefinitionsIgnored = len(ignored)
	sum.Competitors = agg.Competitors()

	candidates := agg.Candidates()
	sum.Units = len(candidates)
	templates := award.NewTemplates(tpls)
	outcomes := make([]award.Outcome, len(candidates))

	err = s.fanOut(ctx, len(candidates), func(ctx context.Context, i int) {
		cand := candidates[i]
		group, _ := c.Group(cand.Group)
		outcomes[i] = s.issuer.Issue(ctx, templates, award.Request{
			CompetitorID: cand.CompetitorID,
			Group:        group,
			Score:        cand.Score,
			Result:       cand.Result,
		})
	})

	for i, cand := range candidates {
		sum.record(cand.CompetitorID, cand.Group, outcomes[i])
	}
	return err
}

func (s *Service) runRegenerate(ctx context.Context, sum *Summary) error {
	tpls, err := s.store.Templates(ctx)
	if err != nil {
		return fmt.Errorf("%w: templates: %w", ErrLoadInputs, err)
	}
	pending, err := s.store.RecipientsMissingImage(ctx)
	if err != nil {
		return fmt.Errorf("%w: recipients: %w", ErrLoadInputs, err)
	}

	sum.Units = len(pending)
	templates := award.NewTemplates(tpls)
	outcomes := make([]award.Outcome, len(pending))

	err = s.fanOut(ctx, len(pending), func(ctx context.Context, i int) {
		out := s.issuer.Rerender(ctx, templates, pending[i])
		metrics.RecordAward(pending[i].Group, string(out.Status))
		if out.Err != nil {
			metrics.RecordSkip(award.SkipReason(out.Err))
			s.logger.Error(ctx, "image not regenerated",
				logger.String("recipient", pending[i].ID),
				logger.String("group", pending[i].Group),
				logger.Error(out.Err))
		}
		outcomes[i] = out
	})

	for i, a := range pending {
		sum.record(a.CompetitorID, a.Group, outcomes[i])
	}
	return err
}

// fanOut runs fn for every index in [0, n) across the worker pool. Each index
// is handled once; indexes left when ctx is cancelled are not dispatched.
func (s *Service) fanOut(ctx context.Context, n int, fn worker.Handler[int]) error {
	if n == 0 {
		return nil
	}
	q := queue.NewInMemoryQueue[int](queue.WithCapacity(n))
	for i := 0; i < n; i++ {
		if err := q.TryEnqueue(ctx, i); err != nil {
			_ = q.Close()
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	_ = q.Close()

	pool := worker.NewPool(min(s.workerCount, n), fn,
		worker.WithName("issuer"),
		worker.WithLogger(s.logger),
	)
	return pool.Drain(ctx, q)
}
