package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient is the subset of the go-redis client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// RedisCache stores entries as JSON with a native TTL equal to the window.
type RedisCache struct {
	client RedisClient
	window time.Duration
	logger *zap.SugaredLogger
}

func NewRedisCache(client RedisClient, window time.Duration, logger *zap.SugaredLogger) *RedisCache {
	return &RedisCache{client: client, window: window, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redisv9.Nil) {
			c.logger.Warnw("cache read failed", "key", key, "error", err)
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		c.logger.Warnw("failed to unmarshal cached entry", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, true
}

func (c *RedisCache) Set(ctx context.Context, key string, entry Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warnw("failed to marshal cache entry", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, b, c.window).Err(); err != nil {
		c.logger.Warnw("cache write failed", "key", key, "error", err)
	}
}
