package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/utils"
)

// Headers forwarded to handlers once a request is authenticated. Values
// sent by clients are dropped by StripIdentityHeaders before routing.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

const identityKey = "identity"

type identityCtxKey struct{}

// IdentityFrom returns the caller attached by Authenticate.
func IdentityFrom(c echo.Context) (utils.Identity, bool) {
	id, ok := c.Get(identityKey).(utils.Identity)
	return id, ok
}

// IdentityFromContext is IdentityFrom for code that only holds the request
// context.
func IdentityFromContext(ctx context.Context) (utils.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(utils.Identity)
	return id, ok
}

func attachIdentity(c echo.Context, id utils.Identity) {
	c.Set(identityKey, id)
	r := c.Request()
	r.Header.Set(HeaderUserID, strconv.FormatUint(id.SubjectID, 10))
	r.Header.Set(HeaderUserRole, string(id.Role))
	r.Header.Set(HeaderUserEmail, id.Email)
	c.SetRequest(r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, id)))
}

// StripIdentityHeaders removes client-supplied identity headers from every
// request, public routes included. Register it with Echo#Pre.
func StripIdentityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			h.Del(HeaderUserID)
			h.Del(HeaderUserRole)
			h.Del(HeaderUserEmail)
			return next(c)
		}
	}
}
