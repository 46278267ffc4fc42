package config

import (
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("AUTH_ROLE_SOURCE", "")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, RoleFromStore, cfg.RoleSource)
	assert.Equal(t, "ngo-portal", cfg.JWTIssuer)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadTrustedProxies(t *testing.T) {
	setBase(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10/32")

	cfg := Load()
	require.Len(t, cfg.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.True(t, cfg.TrustedProxies[1].Contains(net.ParseIP("192.168.1.10")))
}

func TestLoadOverrides(t *testing.T) {
	setBase(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("AUTH_ROLE_SOURCE", "TOKEN")

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost, "cost is floored")
	assert.Equal(t, RoleFromToken, cfg.RoleSource)
	assert.True(t, cfg.IsProduction())
}

func TestLoadMySQLRequiresDB(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "ngo")
	t.Setenv("DB_PASS", "")

	cfg := Load()
	assert.Equal(t, DBConfig{User: "root", Host: "127.0.0.1", Port: "3306", Name: "ngo"}, cfg.DB)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.InDelta(t, 0.5, cfg.PerSecond(), 1e-9)
	assert.Equal(t, KeyByIPRoute, cfg.KeyStrategy)
}

func TestRateLimitKeyStrategy(t *testing.T) {
	cases := map[string]string{
		"ip":         KeyByIP,
		" IP_ROUTE ": KeyByIPRoute,
		"user_route": KeyByIPRoute,
		"user":       KeyByIPRoute,
		"":           KeyByIPRoute,
	}
	for in, want := range cases {
		t.Setenv("RATE_LIMIT_KEY_STRATEGY", in)
		assert.Equal(t, want, LoadRateLimitConfig().KeyStrategy, in)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "5s")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestNewRedisClient(t *testing.T) {
	srv := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", srv.Addr())

	client := NewRedisClient(LoadRedisConfig())
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: false}))
	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}))
}
