package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/truckops/truckops/internal/platform/httpx"
)

// ErrLockNotAcquired is returned when a key stays locked past the wait budget.
var ErrLockNotAcquired = fmt.Errorf("%w: record is locked by another request", httpx.ErrConflict)

// TripLockKey builds redis keys for trip lifecycle critical sections.
func TripLockKey(tripID int64) string {
	return fmt.Sprintf("trip:%d:lock", tripID)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serialises work per key using SET NX PX on Redis.
type Locker struct {
	client *redis.Client
	wait   time.Duration
	retry  time.Duration
}

// NewLocker constructs a Locker that waits up to wait for a busy key.
func NewLocker(client *redis.Client, wait time.Duration) *Locker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{client: client, wait: wait, retry: 50 * time.Millisecond}
}

// Lock is a held lock; release it with Release.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire blocks until key is free, the wait budget is spent or ctx ends.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return &Lock{client: l.client, key: key, token: token}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// Release frees the lock if it is still owned.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil {
		return nil
	}
	return releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err()
}

// WithLock runs fn while holding key.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lock, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}()
	return fn(ctx)
}
