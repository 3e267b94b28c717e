// Package worker runs a fixed set of named workers over a job queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/accolade/pkg/logger"
	"github.com/okian/accolade/pkg/metrics"
)

// defaultWorkerMultiplier is applied to runtime.NumCPU when no count is given.
const defaultWorkerMultiplier = 2

// Handler processes one job. It must confine its own failures.
type Handler[T any] func(ctx context.Context, job T)

// Source hands jobs to workers.
type Source[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Worker pulls jobs off a shared channel and runs the handler on each.
type Worker[T any] struct {
	name      string
	handler   Handler[T]
	processed atomic.Int64
	logger    logger.Logger
}

func newWorker[T any](name string, handler Handler[T], log logger.Logger) *Worker[T] {
	return &Worker[T]{name: name, handler: handler, logger: log.Named(name)}
}

// Name returns the worker's name.
func (w *Worker[T]) Name() string { return w.name }

// Processed returns how many jobs this worker handled.
func (w *Worker[T]) Processed() int64 { return w.processed.Load() }

// Run handles jobs until the channel closes or ctx is done.
func (w *Worker[T]) Run(ctx context.Context, jobs <-chan T) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker[T]) handle(ctx context.Context, job T) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "job panicked", logger.String("panic", fmt.Sprint(r)))
		}
	}()
	w.handler(ctx, job)
	w.processed.Add(1)
}

// Pool manages multiple workers sharing one source.
type Pool[T any] struct {
	workers []*Worker[T]
	logger  logger.Logger
}

// NewPool creates count workers running handler.
func NewPool[T any](count int, handler Handler[T], opts ...Option) *Pool[T] {
	if count < 1 {
		count = runtime.NumCPU() * defaultWorkerMultiplier
	}
	cfg := config{prefix: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool[T]{
		workers: make([]*Worker[T], count),
		logger:  cfg.logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = newWorker(cfg.prefix+"-"+strconv.Itoa(i), handler, cfg.logger)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Drain runs every worker until src is exhausted or ctx is done. It returns
// the context error when cancelled before the source ran dry.
func (p *Pool[T]) Drain(ctx context.Context, src Source[T]) error {
	metrics.UpdateWorkerCount(len(p.workers))
	defer metrics.UpdateWorkerCount(0)

	g, gctx := errgroup.WithContext(ctx)
	jobs := src.Dequeue(gctx)
	for _, w := range p.workers {
		g.Go(func() error {
			w.Run(gctx, jobs)
			return nil
		})
	}
	_ = g.Wait()

	var total int64
	for _, w := range p.workers {
		total += w.Processed()
	}
	p.logger.Debug(ctx, "pool drained",
		logger.Int("workers", len(p.workers)),
		logger.Int("processed", int(total)),
	)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}
