package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// hitScript opens or increments a window in a single round trip. The reset
// timestamp lives next to the counter so every instance reports the same
// resetAt for a window.
//
// KEYS[1] window key, ARGV[1] now (unix ms), ARGV[2] window (ms).
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local reset = tonumber(redis.call('HGET', KEYS[1], 'reset'))
if reset == nil or reset <= now then
  reset = now + window
  redis.call('DEL', KEYS[1])
  redis.call('HSET', KEYS[1], 'reset', reset)
  redis.call('PEXPIRE', KEYS[1], window)
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, reset}
`)

// RateLimitStore shares rate-limit windows between instances through Redis.
// Keys expire on their own, so it needs no sweep.
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore creates a RateLimitStore wrapping the given Redis client.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// Hit implements ratelimit.Store.
func (s *RateLimitStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int64, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	vals, err := hitScript.Run(ctx, s.client, []string{keyPrefix + key}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit hit: %w", err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit hit: unexpected reply %v", vals)
	}
	return vals[0], time.UnixMilli(vals[1]), nil
}
