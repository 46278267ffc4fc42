package config

import (
	"strings"
	"time"
)

// Rate limit key strategies.
const (
	KeyByIP      = "ip"
	KeyByIPRoute = "ip_route"
)

// RateLimitConfig controls the token bucket placed in front of the
// credential endpoints (/auth/register, /auth/login).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int // bucket size, i.e. the allowed burst
	RefillTokens   int // tokens added every RefillInterval
	RefillInterval time.Duration
	TTL            time.Duration // idle buckets expire after this long
	KeyStrategy    string        // ip, ip_route
	Prefix         string        // Redis key prefix
	LocalFallback  bool          // use an in-process limiter when Redis is unavailable
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. The defaults allow a
// burst of ten attempts per client and route, refilled one every six
// seconds.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    parseKeyStrategy(envStr("RATE_LIMIT_KEY_STRATEGY", KeyByIPRoute)),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		LocalFallback:  envBool("RATE_LIMIT_LOCAL_FALLBACK", true),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// parseKeyStrategy only accepts strategies that exist before
// authentication. Anything else falls back to ip_route.
func parseKeyStrategy(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case KeyByIP, KeyByIPRoute:
		return v
	}
	return KeyByIPRoute
}

// PerSecond is the steady refill rate, used by the in-process limiter.
func (c RateLimitConfig) PerSecond() float64 {
	return float64(c.RefillTokens) / c.RefillInterval.Seconds()
}
