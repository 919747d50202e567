package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	quotaKeyPrefix = "quota:purge:"
	quotaTTL       = 2 * time.Minute
)

// QuotaResult is the outcome of a purge quota check.
type QuotaResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes one token atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- seconds, fractional
	local ttl = tonumber(ARGV[4])       -- seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after_ms = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after_ms = math.ceil((1 - tokens) / rate * 1000)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after_ms, math.floor(tokens)}
`)

// TakePurgeQuota consumes one purge token for backend from a bucket shared by
// every instance. Redis errors fail open.
func (c *Cache) TakePurgeQuota(ctx context.Context, backend string, ratePerSecond float64, burst int) (*QuotaResult, error) {
	if ratePerSecond <= 0 {
		return &QuotaResult{Allowed: true, Remaining: int64(burst)}, nil
	}

	now := float64(time.Now().UnixMilli()) / 1000
	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{quotaKeyPrefix + backend},
		ratePerSecond, burst, now, int(quotaTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return &QuotaResult{Allowed: true, Remaining: int64(burst)}, nil
	}

	return &QuotaResult{
		Allowed:    result[0] == 1,
		RetryAfter: time.Duration(result[1]) * time.Millisecond,
		Remaining:  result[2],
	}, nil
}
