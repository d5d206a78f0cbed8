package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kpeterson/optflow/internal/telemetry"
)

const redisKeyPrefix = "quality:quote:"

// Cache is a Redis-backed quote cache fronting the (out-of-scope) market
// data provider client: Redis hot path, provider-fetch fallback, warm the
// cache on miss — the same shape as the teacher's alert-fingerprint dedup
// cache.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewCache builds a Cache with the given TTL (StaleAfterSeconds).
func NewCache(rdb *redis.Client, logger *slog.Logger, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, logger: logger, ttl: ttl}
}

func cacheKey(symbol string) string {
	return redisKeyPrefix + symbol
}

// Get returns a cached quote for symbol, or ok=false on a cache miss or
// Redis error (the caller falls back to the provider on a miss).
func (c *Cache) Get(ctx context.Context, symbol string) (Quote, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			telemetry.QuoteCacheResultsTotal.WithLabelValues("miss").Inc()
		} else {
			telemetry.QuoteCacheResultsTotal.WithLabelValues("error").Inc()
			c.logger.Warn("quote cache lookup failed, falling back to provider", "symbol", symbol, "error", err)
		}
		return Quote{}, false
	}

	var q Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		telemetry.QuoteCacheResultsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("invalid cached quote payload", "symbol", symbol, "error", err)
		return Quote{}, false
	}
	telemetry.QuoteCacheResultsTotal.WithLabelValues("hit").Inc()
	return q, true
}

// Set warms the cache for symbol with TTL equal to the quote staleness
// window, so an entry ages out of Redis right as the gate would mark it
// WARN_STALE anyway.
func (c *Cache) Set(ctx context.Context, q Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshaling quote for cache: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(q.Symbol), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to set quote cache", "symbol", q.Symbol, "error", err)
		return err
	}
	return nil
}
