package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// ErrLockNotAcquired is returned when the mutex could not be taken
// within the retry budget.
var ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")

// ErrLockNotHeld is returned when releasing a mutex owned by someone
// else (or already expired).
var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

// Mutex is a single-holder distributed lock. The canonical use is
// guarding the model artifact during training so that concurrent
// trainers cannot interleave writes.
type Mutex struct {
	client     *Client
	key        string
	value      string
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
}

// MutexOption tunes a Mutex.
type MutexOption func(*Mutex)

// WithTTL sets the lock expiry.
func WithTTL(ttl time.Duration) MutexOption {
	return func(m *Mutex) { m.ttl = ttl }
}

// WithRetry sets the acquisition retry budget.
func WithRetry(count int, delay time.Duration) MutexOption {
	return func(m *Mutex) {
		m.retryCount = count
		m.retryDelay = delay
	}
}

// NewMutex builds a named mutex. Each Mutex instance carries its own
// ownership token, so two instances with the same name contend.
func (c *Client) NewMutex(name string, opts ...MutexOption) *Mutex {
	m := &Mutex{
		client:     c,
		key:        c.Key("lock", name),
		value:      uuid.New().String(),
		ttl:        2 * time.Minute,
		retryDelay: 200 * time.Millisecond,
		retryCount: 25,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock blocks until the mutex is acquired, the retry budget runs out,
// or ctx is cancelled.
func (m *Mutex) Lock(ctx context.Context) error {
	for i := 0; i < m.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

// TryLock attempts a single non-blocking acquisition.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.Raw().SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "acquiring lock")
	}
	return ok, nil
}

// Unlock releases the mutex if this instance still holds it.
func (m *Mutex) Unlock(ctx context.Context) error {
	res, err := unlockScript.Run(ctx, m.client.Raw(), []string{m.key}, m.value).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "releasing lock")
	}
	if n, _ := res.(int64); n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend refreshes the TTL while held.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, m.client.Raw(), []string{m.key}, m.value, ttl.Milliseconds()).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "extending lock")
	}
	n, _ := res.(int64)
	return n == 1, nil
}
