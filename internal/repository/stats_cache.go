package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache stores serialized dashboard aggregates with a TTL.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisStatsCache struct {
	client *redis.Client
}

// NewRedisStatsCache builds a StatsCache backed by go-redis.
func NewRedisStatsCache(client *redis.Client) StatsCache {
	return &redisStatsCache{client: client}
}

func (c *redisStatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisStatsCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
