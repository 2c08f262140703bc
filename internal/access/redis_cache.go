package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"CarMania-Agent/pkg/logger"
)

// RedisCacheConfig describes the Redis connection for the shared cache.
type RedisCacheConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisCache stores verification results in Redis with per-key expiry, so
// several agent instances can share one cache.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisCacheConfig) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "carmania:access:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get implements Cache. Redis handles expiry; a missing key is a miss.
func (c *RedisCache) Get(ctx context.Context, address string) (Result, bool) {
	raw, err := c.client.Get(ctx, c.prefix+address).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("redis cache read failed", "address", address, "error", err)
		}
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.L().Warn("redis cache entry corrupt, dropping", "address", address, "error", err)
		c.client.Del(ctx, c.prefix+address)
		return Result{}, false
	}
	return result, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, address string, result Result, ttl time.Duration) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.L().Warn("redis cache encode failed", "address", address, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+address, raw, ttl).Err(); err != nil {
		logger.L().Warn("redis cache write failed", "address", address, "error", err)
	}
}

// Clear implements Cache by removing every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("redis cache clear failed", "error", err)
	}
}

// Stats implements Cache.
func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	stats := CacheStats{Addresses: []string{}}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		stats.Addresses = append(stats.Addresses, strings.TrimPrefix(iter.Val(), c.prefix))
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("redis cache stats failed", "error", err)
	}
	stats.Size = len(stats.Addresses)
	return stats
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
