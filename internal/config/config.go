// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ankur-foundation/ngo-portal/internal/utils"
)

// RoleSource decides where the authorization middleware takes the caller's
// role from.
type RoleSource string

const (
	// RoleFromStore re-reads the role from the user record on every request,
	// so role changes apply immediately.
	RoleFromStore RoleSource = "store"
	// RoleFromToken trusts the role embedded at login until the token expires.
	RoleFromToken RoleSource = "token"
)

// Store drivers.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env         string        // APP_ENV: dev, test, prod
	Port        string        // APP_PORT
	StoreDriver string        // STORE_DRIVER: mysql (default) or memory
	DB          DBConfig      // DB_*, only read for the mysql store
	JWTSecret   string        // JWT_SECRET
	JWTIssuer   string        // JWT_ISSUER
	TokenTTL    time.Duration // TOKEN_TTL, also the cookie Max-Age
	BcryptCost  int           // BCRYPT_COST, never below utils.MinBcryptCost
	RoleSource  RoleSource    // AUTH_ROLE_SOURCE
	RabbitMQURL string        // RABBITMQ_URL, empty disables the audit queue
	LogLevel    string        // LOG_LEVEL: debug, info, warn, error

	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For
	// (TRUSTED_PROXIES, comma separated). Empty means the peer address is
	// the client address.
	TrustedProxies []*net.IPNet
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Database variables
// are only required for the mysql store.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		JWTSecret:   must("JWT_SECRET"),
		JWTIssuer:   envStr("JWT_ISSUER", utils.DefaultIssuer),
		TokenTTL:    envDur("TOKEN_TTL", utils.DefaultTokenTTL),
		BcryptCost:  envInt("BCRYPT_COST", utils.MinBcryptCost),
		RoleSource:  parseRoleSource(envStr("AUTH_ROLE_SOURCE", string(RoleFromStore))),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		LogLevel:    strings.ToLower(envStr("LOG_LEVEL", "info")),

		TrustedProxies: parseCIDRs(envList("TRUSTED_PROXIES", "")),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DB = LoadDB()
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	if cfg.BcryptCost < utils.MinBcryptCost {
		cfg.BcryptCost = utils.MinBcryptCost
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = utils.DefaultTokenTTL
	}
	return cfg
}

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
	User string // DB_USER
	Pass string // DB_PASS (empty allowed)
	Host string // DB_HOST
	Port string // DB_PORT
	Name string // DB_NAME
}

// LoadDB reads the DB_* variables. The admin CLI calls it on its own since
// it needs no HTTP or token settings.
func LoadDB() DBConfig {
	return DBConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"),
		Host: must("DB_HOST"),
		Port: must("DB_PORT"),
		Name: must("DB_NAME"),
	}
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func parseRoleSource(s string) RoleSource {
	switch RoleSource(strings.ToLower(strings.TrimSpace(s))) {
	case RoleFromToken:
		return RoleFromToken
	case RoleFromStore:
		return RoleFromStore
	}
	log.Fatalf("invalid AUTH_ROLE_SOURCE: %q (want store or token)", s)
	return RoleFromStore
}

func parseCIDRs(list []string) []*net.IPNet {
	var out []*net.IPNet
	for _, s := range list {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			log.Fatalf("invalid TRUSTED_PROXIES entry: %q", s)
		}
		out = append(out, n)
	}
	return out
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
