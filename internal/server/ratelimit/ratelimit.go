// Package ratelimit throttles callers with a token bucket kept in Redis, so
// that every server instance shares the same budget per client.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, 0}
end

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + (delta * rate) / 1000.0)

local allowed = tokens >= requested
local wait_ms = 0
if allowed then
  tokens = tokens - requested
else
  wait_ms = math.ceil((requested - tokens) * 1000.0 / rate)
end

redis.call("HSET", key, "tokens", tostring(tokens), "ts", tostring(now))
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

if allowed then
  return {1, 0}
end
return {0, wait_ms}
`

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter hands out one token per request from a bucket of size burst
// refilled at rate tokens per second.
type RateLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	rate   float64
	burst  float64
	script *redis.Script
	now    func() time.Time
}

func NewRedisRateLimiter(rdb redis.UniversalClient, prefix string, rate, burst float64) *RateLimiter {
	if prefix == "" {
		prefix = "useradmin:ratelimit:"
	}
	return &RateLimiter{
		rdb:    rdb,
		prefix: prefix,
		rate:   rate,
		burst:  burst,
		script: redis.NewScript(tokenBucketLua),
		now:    time.Now,
	}
}

// Allow takes a token from the bucket identified by key. A disabled limiter
// (nil, or non-positive rate or burst) always allows.
func (r *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if r == nil || r.rate <= 0 || r.burst <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := r.now().UnixMilli()
	res, err := r.script.Run(ctx, r.rdb, []string{r.prefix + key}, r.rate, r.burst, now, 1).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]any)
	if !ok || len(values) < 2 {
		return Decision{}, fmt.Errorf("ratelimit invalid result")
	}

	return Decision{
		Allowed:    toInt64(values[0]) == 1,
		RetryAfter: time.Duration(toInt64(values[1])) * time.Millisecond,
	}, nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
