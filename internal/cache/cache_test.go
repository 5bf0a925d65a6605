package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S3OD177/trendyolxsync/internal/config"
	"github.com/S3OD177/trendyolxsync/internal/models"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisClientFrom(client), mr
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := NewRedisClient(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer rc.Close()

	mr.Close()
	_, err = NewRedisClient(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()})
	assert.Error(t, err)
}

func TestGetMissingKey(t *testing.T) {
	rc, _ := newTestRedis(t)
	_, err := rc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunLockExcludesSecondHolder(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()
	lock := NewRunLock(rc, time.Minute)

	lease, err := lock.Acquire(ctx, models.KindProducts, 42)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, models.KindProducts, 42)
	assert.ErrorIs(t, err, ErrLockHeld)

	// Other kinds and sellers are independent.
	other, err := lock.Acquire(ctx, models.KindShipments, 42)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("trendyol:sync:lock:products:42"))

	again, err := lock.Acquire(ctx, models.KindProducts, 42)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRunLockExpires(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()
	lock := NewRunLock(rc, time.Minute)

	stale, err := lock.Acquire(ctx, models.KindProducts, 1)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	fresh, err := lock.Acquire(ctx, models.KindProducts, 1)
	require.NoError(t, err)

	// Releasing the expired lease must not free the new holder's lock.
	require.NoError(t, stale.Release(ctx))
	_, err = lock.Acquire(ctx, models.KindProducts, 1)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, fresh.Release(ctx))
}

func TestNilLeaseRelease(t *testing.T) {
	var lease *Lease
	assert.NoError(t, lease.Release(context.Background()))
}

func TestRunStoreRoundTrip(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()
	store := NewRunStore(rc)

	_, err := store.Last(ctx, models.KindProducts, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	summary := &models.RunSummary{
		RunID:      "run-1",
		Kind:       models.KindProducts,
		SellerID:   42,
		State:      "DONE",
		Fetched:    120,
		Upserted:   118,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Statuses:   map[models.BuyboxStatus]int{models.BuyboxWin: 100, models.BuyboxLose: 18},
	}
	require.NoError(t, store.Save(ctx, summary))
	assert.True(t, mr.Exists("trendyol:sync:last:products:42"))
	assert.Greater(t, mr.TTL("trendyol:sync:last:products:42"), time.Duration(0))

	got, err := store.Last(ctx, models.KindProducts, 42)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 118, got.Upserted)
	assert.Equal(t, 100, got.Statuses[models.BuyboxWin])
	assert.Equal(t, 90*time.Second, got.Duration())
}
