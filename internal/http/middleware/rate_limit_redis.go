package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNilRedisClient = errors.New("rate limit: redis client is nil")

// RedisFixedWindowLimiter keeps per-key counters in Redis so every API instance
// shares one budget. A counter whose expiry was lost is re-armed on the next hit.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "booking:rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix + ":"}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, errNilRedisClient
	}
	if key == "" {
		key = "unknown"
	}
	if window < time.Millisecond {
		window = time.Second
	}
	storeKey := l.prefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	if _, err := l.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, storeKey)
		pttl = p.PTTL(ctx, storeKey)
		return nil
	}); err != nil {
		return false, window, err
	}

	count := incr.Val()
	ttl := pttl.Val()
	if count == 1 || ttl < 0 {
		if err := l.client.PExpire(ctx, storeKey, window).Err(); err != nil {
			return false, window, err
		}
		ttl = window
	}
	return count <= int64(limit), ttl, nil
}
