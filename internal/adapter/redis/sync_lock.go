package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// syncLockTTL bounds how long a crashed replica can block a user's sync.
const syncLockTTL = 10 * time.Minute

// SyncLock prevents concurrent ingestion runs for the same user across
// replicas. Locks auto-expire so a crashed holder cannot wedge a user.
type SyncLock struct {
	rdb *goredis.Client
}

func NewSyncLock(rdb *goredis.Client) *SyncLock {
	return &SyncLock{rdb: rdb}
}

// Acquire returns true if the caller now holds the lock for the user.
func (l *SyncLock) Acquire(ctx context.Context, userEmail string) (bool, error) {
	args := goredis.SetArgs{TTL: syncLockTTL, Mode: "NX"}
	_, err := l.rdb.SetArgs(ctx, lockKey(userEmail), "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return true, nil
}

// Release frees the lock. Safe to call even if the lock already expired.
func (l *SyncLock) Release(ctx context.Context, userEmail string) error {
	if err := l.rdb.Del(ctx, lockKey(userEmail)).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}

func lockKey(userEmail string) string {
	return "synclock:" + userEmail
}
