package backends

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON cache over Redis. A nil *Cache (or one built without a
// Redis client) behaves as a permanent miss, so every backend works unchanged
// when caching is not configured.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, logger *slog.Logger) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, logger: logger.With("component", "cache")}
}

// CachedJSON returns the cached value under key, or runs fill and stores the
// result for ttl. Cache failures are logged and degrade to a direct fill;
// fill errors are never cached.
func CachedJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fill func(ctx context.Context) (T, error)) (T, error) {
	if c == nil || c.rdb == nil {
		return fill(ctx)
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("dropping undecodable cache entry", "key", key)
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	value, err := fill(ctx)
	if err != nil {
		return value, err
	}

	if encoded, err := json.Marshal(value); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return value, nil
}
