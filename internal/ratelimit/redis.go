package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisLimiter enforces a minimum interval between requests per key using
// Redis, so the limit holds across server instances.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

// NewRedis creates a Redis-backed limiter. Keys are stored under prefix
// with a TTL equal to the minimum interval.
func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		minInterval: minInterval,
	}
}

// Allow reports whether a request for key may proceed. SET NX with an
// expiry makes claim-and-check a single atomic operation; on Redis errors
// the request is allowed rather than blocked.
func (l *RedisLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().UnixNano(), l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

// Reset clears the recorded claim for key.
func (l *RedisLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	l.client.Del(ctx, l.prefix+key)
}

var _ RateLimiter = (*RedisLimiter)(nil)
