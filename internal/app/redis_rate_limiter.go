package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on first use.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisViewRateLimiter throttles rewarded views per viewer across replicas.
// It satisfies ViewRateLimiter.
type RedisViewRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisViewRateLimiter(client redis.UniversalClient, prefix string) *RedisViewRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "viewcoin:rate_limit"
	}
	return &RedisViewRateLimiter{client: client, prefix: p}
}

// ConsumeRateLimit counts one event for subject in scope and reports the running
// count with the seconds left in the window. A nil limiter or a zero limit counts nothing.
func (r *RedisViewRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	values, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("view rate limiter script failed: %w", err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected view rate limiter response length: %d", len(values))
	}
	currentCount, ttlMs := values[0], values[1]
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return int(currentCount), retryAfter, nil
}
