package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankur-foundation/ngo-portal/internal/config"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
)

func limitCfg(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
		LocalFallback:  true,
	}
}

func limitedEcho(rl *RateLimiter) *echo.Echo {
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, rl.Middleware())
	return e
}

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterRedisBucket(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := limitedEcho(NewRateLimiter(limitCfg(2), rdb, metrics.New()))

	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.1").Code)
	second := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	blocked := hit(e, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, blocked.Body.String())

	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.2").Code, "buckets are per client")
	assert.True(t, srv.Exists("rl:ip:10.0.0.1:route:POST /auth/login"))
}

func TestRateLimiterFallsBackWhenRedisIsDown(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	srv.Close()

	e := limitedEcho(NewRateLimiter(limitCfg(1), rdb, nil))
	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1").Code)
}

func TestRateLimiterLocalOnly(t *testing.T) {
	rl := NewRateLimiter(limitCfg(1), nil, nil)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	e := limitedEcho(rl)

	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.1").Code, "refilled")
}

func TestRateLimiterDisabled(t *testing.T) {
	cfg := limitCfg(1)
	cfg.Enabled = false
	e := limitedEcho(NewRateLimiter(cfg, nil, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.1").Code)
	}
}

func TestRateLimitKeyUsesPeerAddressOnly(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// Strategies keyed on identity are not honored: the bucket exists
	// before authentication runs.
	cfg := limitCfg(1)
	cfg.KeyStrategy = "user_route"
	e := limitedEcho(NewRateLimiter(cfg, rdb, nil))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	req.Header.Set(HeaderUserID, "42")
	e.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, srv.Exists("rl:ip:10.0.0.9:route:POST /auth/login"))

	cfg.KeyStrategy = config.KeyByIP
	e = limitedEcho(NewRateLimiter(cfg, rdb, nil))
	assert.Equal(t, http.StatusNoContent, hit(e, "10.0.0.9").Code)
	assert.True(t, srv.Exists("rl:ip:10.0.0.9"))
}
