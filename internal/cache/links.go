package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const linkKeyPrefix = "quiz:link:"

// RedisLinks caches link token -> test id with a TTL.
type RedisLinks struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLinks connects to url (redis://[:password@]host:port/db) and
// pings it once.
func NewRedisLinks(ctx context.Context, url string, ttl time.Duration) (*RedisLinks, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return NewRedisLinksWithClient(rdb, ttl), nil
}

func NewRedisLinksWithClient(rdb *redis.Client, ttl time.Duration) *RedisLinks {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLinks{rdb: rdb, ttl: ttl}
}

func (c *RedisLinks) Get(ctx context.Context, token string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, linkKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (c *RedisLinks) Set(ctx context.Context, token, testID string) error {
	return c.rdb.Set(ctx, linkKeyPrefix+token, testID, c.ttl).Err()
}

func (c *RedisLinks) Delete(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, linkKeyPrefix+token).Err()
}

func (c *RedisLinks) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *RedisLinks) Close() error { return c.rdb.Close() }

// Noop never hits; used when no redis is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Noop) Set(context.Context, string, string) error         { return nil }
func (Noop) Delete(context.Context, string) error              { return nil }
