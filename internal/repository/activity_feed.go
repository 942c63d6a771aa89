package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const activityFeedKey = "tickets:activity"

// ActivityFeed keeps a bounded, most-recent-first log of ticket events
// for the dashboard's activity panel.
type ActivityFeed interface {
	Push(ctx context.Context, entry []byte) error
	Recent(ctx context.Context, limit int) ([][]byte, error)
	Clear(ctx context.Context) error
}

type redisActivityFeed struct {
	client *redis.Client
	size   int64
}

// NewRedisActivityFeed builds an ActivityFeed capped at size entries.
func NewRedisActivityFeed(client *redis.Client, size int) ActivityFeed {
	if size <= 0 {
		size = 100
	}
	return &redisActivityFeed{client: client, size: int64(size)}
}

func (f *redisActivityFeed) Push(ctx context.Context, entry []byte) error {
	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, activityFeedKey, entry)
	pipe.LTrim(ctx, activityFeedKey, 0, f.size-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (f *redisActivityFeed) Recent(ctx context.Context, limit int) ([][]byte, error) {
	if limit <= 0 || int64(limit) > f.size {
		limit = int(f.size)
	}
	values, err := f.client.LRange(ctx, activityFeedKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([][]byte, 0, len(values))
	for _, v := range values {
		entries = append(entries, []byte(v))
	}
	return entries, nil
}

func (f *redisActivityFeed) Clear(ctx context.Context) error {
	return f.client.Del(ctx, activityFeedKey).Err()
}
