// Package lock provides a per-key mutual-exclusion scope used to serialize
// membership mutation on a single team. The Redis implementation coordinates
// across instances; the local implementation covers tests and single-node
// deployments without Redis.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be obtained within the
// wait budget. Callers surface it as a retryable conflict.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker runs fn while holding an exclusive lock on key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// Redis implements Locker with a SET NX lease.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedis creates a Redis-backed locker. Leases expire after ttl so a
// crashed holder cannot wedge a team forever.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		ttl:    10 * time.Second,
		wait:   5 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

// WithLock implements Locker.
func (r *Redis) WithLock(ctx context.Context, key string, fn func() error) error {
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)
	for {
		ok, err := r.client.SetNX(ctx, "lock:"+key, token, r.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrNotAcquired
		}
		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer r.release(key, token)
	return fn()
}

// release deletes the lease only if we still hold it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, r.client, []string{"lock:" + key}, token).Err()
}

// Local implements Locker with in-process mutexes.
type Local struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*sync.Mutex)}
}

func (l *Local) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// WithLock implements Locker.
func (l *Local) WithLock(ctx context.Context, key string, fn func() error) error {
	m := l.get(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}
