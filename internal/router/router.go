// Package router defines how HTTP routes are registered for the API.
package router

import (
	"net"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/handler"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
	"github.com/ankur-foundation/ngo-portal/internal/middleware"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

// Deps bundles everything the routes need. Limiter, Cache, Metrics and DB
// may be nil. TrustedProxies lists the only peers whose X-Forwarded-For is
// believed; with none, the TCP peer is the client.
type Deps struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Committees   *handler.CommitteeHandler
	Accounts     *handler.AccountHandler
	Transactions *handler.TransactionHandler
	AuditLogs    *handler.AuditLogHandler

	Guard   *middleware.Guard
	Limiter *middleware.RateLimiter
	Cache   *middleware.ResponseCache
	Metrics *metrics.Metrics
	DB      handler.Pinger

	TrustedProxies []*net.IPNet
}

// New builds the Echo instance with the shared middleware stack and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.Handler
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	// Identity headers are only ever set by Authenticate.
	e.Pre(middleware.StripIdentityHeaders())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	e.Use(middleware.RequestLogger())

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterAdmin(e, d)
	return e
}

// ipExtractor decides what c.RealIP returns, which keys the rate limiter
// and the request log. Forwarding headers from untrusted peers are ignored.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterRoutes registers routes that do not require authentication: the
// health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
}

// RegisterAuth registers the /auth endpoints. They carry no session
// requirement; register and login are rate limited.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/auth")
	limited := []echo.MiddlewareFunc{}
	if d.Limiter != nil {
		limited = append(limited, d.Limiter.Middleware())
	}
	g.POST("/register", d.Auth.Register, limited...)
	g.POST("/login", d.Auth.Login, limited...)
	g.POST("/profile", d.Auth.Profile)
	g.POST("/logout", d.Auth.Logout)
}

// RegisterAdmin registers the /admin endpoints. Every route requires an
// authenticated, active user; individual routes add role or permission
// gates on top.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := d.Guard
	admin := e.Group("/admin", g.Authenticate())

	readers := g.RequireRole(rbac.RolePresident, rbac.RoleAuditor)
	president := g.RequireRole(rbac.RolePresident)

	// ---- Users ----
	admin.GET("/users", d.Users.List, readers)
	admin.PATCH("/users", d.Users.SetActive, president)

	// ---- Committees ----
	admin.GET("/committees", d.Committees.List, d.Cache.Cached("committees"))
	admin.POST("/committees", d.Committees.Create, president, d.Cache.PurgeOnWrite("committees"))

	// ---- Accounts ----
	// Committee listings embed account balances, so account and
	// transaction writes purge the committee cache too.
	admin.GET("/accounts", d.Accounts.List)
	admin.POST("/accounts", d.Accounts.Create, g.RequireRole(rbac.RoleTreasurer), d.Cache.PurgeOnWrite("committees"))

	// ---- Transactions ----
	admin.GET("/transactions", d.Transactions.List)
	admin.POST("/transactions", d.Transactions.Create, g.RequirePermission(rbac.EnterData), d.Cache.PurgeOnWrite("committees"))

	// ---- Audit logs ----
	admin.GET("/audit-logs", d.AuditLogs.List, readers)
	admin.POST("/audit-logs", d.AuditLogs.Create)
}
