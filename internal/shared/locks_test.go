package shared_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/shared"
)

func TestLockerExcludesConcurrentHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := shared.NewLocker(client, 100*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, shared.TripLockKey(7), time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, shared.TripLockKey(7), time.Minute)
	require.ErrorIs(t, err, shared.ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	again, err := locker.Acquire(ctx, shared.TripLockKey(7), time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLockReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := shared.NewLocker(client, 50*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "trip:1:lock", time.Minute)
	require.NoError(t, err)

	// Simulate expiry followed by another owner taking the key.
	require.NoError(t, mr.Set("trip:1:lock", "someone-else"))
	require.NoError(t, lock.Release(ctx))

	value, err := mr.Get("trip:1:lock")
	require.NoError(t, err)
	require.Equal(t, "someone-else", value)
}

func TestWithLockRunsFunction(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := shared.NewLocker(client, time.Second)

	ran := false
	err := locker.WithLock(context.Background(), shared.TripLockKey(3), time.Minute, func(ctx context.Context) error {
		ran = true
		require.True(t, mr.Exists(shared.TripLockKey(3)))
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.False(t, mr.Exists(shared.TripLockKey(3)))

	var nilLocker *shared.Locker
	require.NoError(t, nilLocker.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil }))
}
