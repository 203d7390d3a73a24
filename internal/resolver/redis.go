package resolver

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendix/platform/internal/models"
)

// redisKeyPrefix namespaces resolution entries in a shared Redis.
const redisKeyPrefix = "vendix:domains:resolve:"

// RedisCache is a shared TTL cache for multi-instance deployments. Redis
// errors degrade to cache misses so the read path stays available when Redis
// is not.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed cache. A non-positive ttl falls back
// to DefaultTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, hostname string) (*models.ResolvedTenant, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+hostname).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis cache get", "hostname", hostname, "error", err)
		}
		return nil, false
	}
	var tenant models.ResolvedTenant
	if err := json.Unmarshal(data, &tenant); err != nil {
		c.logger.Warn("corrupt cache entry", "hostname", hostname, "error", err)
		return nil, false
	}
	return &tenant, true
}

func (c *RedisCache) Set(ctx context.Context, hostname string, tenant *models.ResolvedTenant) {
	data, err := json.Marshal(tenant)
	if err != nil {
		c.logger.Error("marshaling resolved tenant", "hostname", hostname, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+hostname, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set", "hostname", hostname, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, hostname string) {
	if err := c.client.Del(ctx, redisKeyPrefix+hostname).Err(); err != nil {
		c.logger.Warn("redis cache delete", "hostname", hostname, "error", err)
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("redis cache flush", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis cache scan", "error", err)
	}
}
