package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process holds the run lock.
var ErrLockHeld = errors.New("SYNC_LOCK_HELD")

// releaseScript deletes the lock only if it still carries our token, so a
// run whose lock expired cannot release a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is an expiring lock that keeps overlapping sync runs for the same
// seller and job kind apart.
type RunLock struct {
	redis *RedisClient
	ttl   time.Duration
}

// Lease is a held lock. Call Release when the run ends.
type Lease struct {
	lock  *RunLock
	key   string
	token string
}

// NewRunLock creates a RunLock whose leases expire after ttl.
func NewRunLock(redis *RedisClient, ttl time.Duration) *RunLock {
	return &RunLock{redis: redis, ttl: ttl}
}

func (l *RunLock) key(kind string, sellerID int64) string {
	return fmt.Sprintf("trendyol:sync:lock:%s:%d", kind, sellerID)
}

// Acquire takes the lock for kind and sellerID or returns ErrLockHeld.
func (l *RunLock) Acquire(ctx context.Context, kind string, sellerID int64) (*Lease, error) {
	key := l.key(kind, sellerID)
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{lock: l, key: key, token: token}, nil
}

// Release frees the lease if it is still ours. Releasing an expired or
// taken-over lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.lock.redis.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
