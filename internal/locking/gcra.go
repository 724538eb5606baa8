package locking

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// GCRA keeps one theoretical arrival time (TAT) per key. A request is admitted
// while TAT - burst*interval <= now. Returns {admitted, wait_ms}.
var gcraScript = redis.NewScript(`
local interval = tonumber(ARGV[1])
local tolerance = tonumber(ARGV[2])
local t = redis.call("time")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local tat = tonumber(redis.call("get", KEYS[1]))
if tat == nil or tat < now then
  tat = now
end

local next_tat = tat + interval
local allow_at = next_tat - tolerance
if allow_at > now then
  return {0, allow_at - now}
end

redis.call("set", KEYS[1], next_tat, "px", next_tat - now)
return {1, 0}`)

// limit is a sustained rate with burst headroom.
type limit struct {
	interval time.Duration
	burst    int
}

func perMinute(n, burst int) limit {
	if n <= 0 {
		return limit{}
	}
	return limit{interval: time.Minute / time.Duration(n), burst: burst}
}

func (l limit) valid() bool {
	return l.interval > 0 && l.burst > 0
}

// tolerance is how far ahead of now the TAT may run before requests are refused.
func (l limit) tolerance() time.Duration {
	return l.interval * time.Duration(l.burst)
}

type rateLimiter struct {
	client redis.Scripter
}

func newRateLimiter(client *redis.Client) *rateLimiter {
	return &rateLimiter{client: client}
}

// take admits one request against key. When refused it reports how long until
// the next request would be admitted.
func (r *rateLimiter) take(ctx context.Context, key string, l limit) (bool, time.Duration, error) {
	if key == "" || !l.valid() {
		return false, 0, errors.New("locking: invalid rate limit")
	}
	res, err := gcraScript.Run(ctx, r.client, []string{key},
		l.interval.Milliseconds(), l.tolerance().Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, errors.New("locking: unexpected limiter reply")
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}
