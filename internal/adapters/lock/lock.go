// Package lock keeps two processes from running the same batch at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/okian/accolade/pkg/logger"
)

// Lock errors.
var (
	ErrHeld = errors.New("lock held elsewhere")
	ErrLost = errors.New("lock lost")
)

// Locker hands out exclusive leases by key.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
	// Lost is closed when the lease can no longer be kept. A nil channel
	// means the lease cannot be lost.
	Lost() <-chan struct{}
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Obtain takes key or fails with ErrHeld.
func (l *Local) Obtain(_ context.Context, key string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	l.held[key] = struct{}{}
	return &localLease{l: l, key: key}, nil
}

type localLease struct {
	l    *Local
	key  string
	once sync.Once
}

func (*localLease) Lost() <-chan struct{} { return nil }

func (ll *localLease) Release(context.Context) error {
	ll.once.Do(func() {
		ll.l.mu.Lock()
		delete(ll.l.held, ll.key)
		ll.l.mu.Unlock()
	})
	return nil
}

// Redis is a Locker shared by every process using the same Redis.
// Leases are refreshed at half their TTL until released.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedis creates a Redis-backed locker. ttl bounds how long a crashed
// holder keeps the lock.
func NewRedis(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{client: redislock.New(client), ttl: ttl, logger: log}
}

// Obtain takes key without waiting or fails with ErrHeld.
func (r *Redis) Obtain(ctx context.Context, key string) (Lease, error) {
	l, err := r.client.Obtain(ctx, key, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	lost := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(r.ttl / 2)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := l.Refresh(context.Background(), r.ttl, nil); err != nil {
					r.logger.Warn(context.Background(), "lock refresh failed",
						logger.String("key", key), logger.Error(err))
					close(lost)
					return
				}
			}
		}
	}()
	return &redisLease{lock: l, stop: stop, done: done, lost: lost}, nil
}

type redisLease struct {
	lock *redislock.Lock
	stop chan struct{}
	done chan struct{}
	lost chan struct{}
	once sync.Once
}

func (rl *redisLease) Lost() <-chan struct{} { return rl.lost }

func (rl *redisLease) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		close(rl.stop)
		<-rl.done
		err = rl.lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			err = nil
		}
	})
	return err
}
