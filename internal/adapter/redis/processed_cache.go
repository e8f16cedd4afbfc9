package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// processedTTL is twice the default mailbox query window (newer_than:24h),
// so a message id stays marked for the whole period it can reappear in scans.
const processedTTL = 48 * time.Hour

// ProcessedCache remembers which Gmail message ids have already been ingested
// for a user, so repeated scans skip the expensive fetch-and-classify step.
type ProcessedCache struct {
	rdb *goredis.Client
}

func NewProcessedCache(rdb *goredis.Client) *ProcessedCache {
	return &ProcessedCache{rdb: rdb}
}

// MarkProcessed returns true if the message was already processed,
// false if it is new (and marks it).
func (c *ProcessedCache) MarkProcessed(ctx context.Context, userEmail, messageID string) (bool, error) {
	key := processedKey(userEmail, messageID)

	args := goredis.SetArgs{TTL: processedTTL, Mode: "NX"}
	_, err := c.rdb.SetArgs(ctx, key, "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark message processed: %w", err)
	}
	return false, nil
}

func processedKey(userEmail, messageID string) string {
	return "processed:" + userEmail + ":" + messageID
}
