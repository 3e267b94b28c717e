// Package queue provides a bounded in-memory job queue.
//
// Producers enqueue without blocking; consumers range over the channel
// returned by Dequeue until the queue is closed and drained.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/accolade/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds a job. It reports false if the queue is full or closed.
	Enqueue(ctx context.Context, job T) bool

	// Dequeue returns a channel receiving jobs until the queue is closed and empty.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs are still delivered.
	Close() error

	// IsClosed returns true once Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	jobs     chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue holding at most the configured capacity.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics.UpdateQueueSize(0)

	return &InMemoryQueue[T]{
		jobs:     make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, job T) bool {
	return q.TryEnqueue(ctx, job) == nil
}

// TryEnqueue adds a job without blocking and says why it could not.
func (q *InMemoryQueue[T]) TryEnqueue(ctx context.Context, job T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejected("queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
// The channel closes once the queue is closed and drained, or ctx is done.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(len(q.jobs))
				select {
				case out <- job:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	return len(q.jobs)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close stops accepting jobs.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
