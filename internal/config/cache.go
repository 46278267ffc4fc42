package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of read-mostly listings. When Enabled is false or no Redis
// client is configured, caching is disabled.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables. Methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
