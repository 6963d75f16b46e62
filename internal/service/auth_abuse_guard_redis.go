package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Atomically bumps one failure counter and returns the cooldown in milliseconds.
var redisAuthAbuseBumpScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local base_ms = tonumber(ARGV[2])
local multiplier = tonumber(ARGV[3])
local max_ms = tonumber(ARGV[4])
local reset_ms = tonumber(ARGV[5])
local free_attempts = tonumber(ARGV[6])

local failures = tonumber(redis.call("HGET", KEYS[1], "failures") or "0")
local last_ms = tonumber(redis.call("HGET", KEYS[1], "last_ms") or "0")
if last_ms == 0 or (now_ms - last_ms) > reset_ms then
  failures = 0
end
failures = failures + 1

local delay = 0
if failures > free_attempts then
  delay = math.floor(base_ms * (multiplier ^ (failures - free_attempts - 1)))
end
if delay > max_ms then
  delay = max_ms
end

redis.call("HSET", KEYS[1], "failures", failures, "last_ms", now_ms, "until_ms", now_ms + delay)
redis.call("PEXPIRE", KEYS[1], reset_ms + delay + 60000)
return delay
`)

type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "booking"
	}
	return &RedisAuthAbuseGuard{
		client: client,
		prefix: prefix + ":auth_abuse",
		policy: normalizeAuthAbusePolicy(policy),
		now:    time.Now,
	}
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UTC().UnixMilli()
	var longest time.Duration
	for _, key := range abuseKeys(scope, identity, ip) {
		values, err := g.client.HMGet(ctx, g.redisKey(key), "last_ms", "until_ms").Result()
		if err != nil {
			return 0, err
		}
		lastMS, ok1 := redisInt(values, 0)
		untilMS, ok2 := redisInt(values, 1)
		if !ok1 || !ok2 || nowMS-lastMS > g.policy.ResetWindow.Milliseconds() || untilMS <= nowMS {
			continue
		}
		longest = max(longest, time.Duration(untilMS-nowMS)*time.Millisecond)
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UTC().UnixMilli()
	var longest time.Duration
	for _, key := range abuseKeys(scope, identity, ip) {
		delayMS, err := redisAuthAbuseBumpScript.Run(ctx, g.client, []string{g.redisKey(key)},
			nowMS,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
			g.policy.FreeAttempts,
		).Int64()
		if err != nil {
			return 0, err
		}
		longest = max(longest, time.Duration(max(delayMS, 0))*time.Millisecond)
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	keys := abuseKeys(scope, identity, ip)
	return g.client.Del(ctx, g.redisKey(keys[0]), g.redisKey(keys[1])).Err()
}

// redisKey hashes the identity part so raw emails never land in redis.
func (g *RedisAuthAbuseGuard) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return g.prefix + ":" + hex.EncodeToString(sum[:])
}

func redisInt(values []any, i int) (int64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	s, ok := values[i].(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
