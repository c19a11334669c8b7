package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reportCacheKey = "helpdesk:report:aggregates"

// ReportCache is a short-lived Redis cache for report aggregates. Every
// ticket mutation invalidates it, so dashboards never serve state older
// than the TTL or the last write.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewReportCache builds a cache around an existing Redis connection. A nil
// client or non-positive TTL disables caching entirely.
func NewReportCache(r *Redis, ttl time.Duration, logger *zap.Logger) *ReportCache {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &ReportCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached aggregate payload, or nil on miss or error.
func (c *ReportCache) Get(ctx context.Context) []byte {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	payload, err := c.client.Get(ctx, reportCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("report cache read failed", zap.Error(err))
		}
		return nil
	}
	return payload
}

// Set stores the aggregate payload for the configured TTL. Failures are
// logged and ignored; the cache is best effort.
func (c *ReportCache) Set(ctx context.Context, payload []byte) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, reportCacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("report cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached payload after a ticket mutation.
func (c *ReportCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, reportCacheKey).Err(); err != nil {
		c.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}
