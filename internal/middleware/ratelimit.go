package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ankur-foundation/ngo-portal/internal/config"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
)

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimiter throttles credential endpoints. Redis holds the shared
// bucket; when Redis is missing or failing, an in-process limiter with the
// same capacity and refill rate takes over so the endpoints stay guarded.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	rdb     *redis.Client
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	local map[string]*localBucket
}

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter. rdb may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		rdb:     rdb,
		metrics: m,
		now:     time.Now,
		local:   map[string]*localBucket{},
	}
}

// Middleware returns the echo middleware. A disabled limiter passes
// everything through.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rl.cfg.Enabled {
			return next
		}
		return func(c echo.Context) error {
			key := buildRateKey(rl.cfg, c)
			allowed, remaining, retry, backend, ok := rl.takeRedis(c, key)
			if !ok {
				if !rl.cfg.LocalFallback {
					return next(c)
				}
				allowed, remaining, retry = rl.takeLocal(key)
				backend = "local"
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				rl.metrics.RateLimited(backend)
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			}
			return next(c)
		}
	}
}

func (rl *RateLimiter) takeRedis(c echo.Context, key string) (allowed bool, remaining int64, retry time.Duration, backend string, ok bool) {
	if rl.rdb == nil {
		return false, 0, 0, "", false
	}
	args := []any{
		rl.now().UnixMilli(),
		rl.cfg.Capacity,
		rl.cfg.RefillTokens,
		rl.cfg.RefillInterval.Milliseconds(),
		int64(rl.cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(c.Request().Context(), rl.rdb, []string{key}, args...).Result()
	if err != nil {
		c.Logger().Warnf("ratelimit: redis error for key=%s: %v", key, err)
		return false, 0, 0, "", false
	}
	arr, isArr := vals.([]any)
	if !isArr || len(arr) != 3 {
		c.Logger().Warnf("ratelimit: unexpected script result for key=%s: %#v", key, vals)
		return false, 0, 0, "", false
	}
	allowed = asInt64(arr[0]) == 1
	remaining = asInt64(arr[1])
	retry = time.Duration(asInt64(arr[2])) * time.Millisecond
	return allowed, remaining, retry, "redis", true
}

func (rl *RateLimiter) takeLocal(key string) (bool, int64, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	b, ok := rl.local[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Limit(rl.cfg.PerSecond()), rl.cfg.Capacity)}
		rl.local[key] = b
	}
	b.lastSeen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int64(b.lim.TokensAt(now)), 0
}

// sweep drops buckets idle for longer than the configured TTL. Called with
// mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, b := range rl.local {
		if now.Sub(b.lastSeen) > rl.cfg.TTL {
			delete(rl.local, k)
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	// The limiter runs before authentication, so only the peer address
	// can key the bucket.
	switch strings.ToLower(cfg.KeyStrategy) {
	case config.KeyByIP:
		parts = append(parts, "ip", ip)
	default: // ip_route
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
