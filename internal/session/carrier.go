// Package session moves the identity token between the client and the
// server: it reads it from an incoming request and writes or clears the
// HTTP-only cookie that holds it.
package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName is the primary cookie holding the token.
	CookieName = "auth-token"
	// LegacyCookieName was used by older dashboard builds; it is only ever cleared.
	LegacyCookieName = "token"
	// HeaderName carries a token forwarded by a routing tier.
	HeaderName = "X-Auth-Token"

	bearerPrefix = "bearer "
)

// Carrier extracts, attaches and clears the token cookie. Secure controls
// the cookie's Secure attribute and should be true in production. MaxAge is
// the cookie lifetime and should match the token horizon.
type Carrier struct {
	Secure bool
	MaxAge time.Duration
}

// New returns a Carrier. maxAge should be the token TTL.
func New(secure bool, maxAge time.Duration) Carrier {
	return Carrier{Secure: secure, MaxAge: maxAge}
}

// Extract returns the token carried by r. It checks, in order, the
// auth-token cookie, the X-Auth-Token header and an Authorization bearer
// header; the first non-empty value wins.
func (Carrier) Extract(r *http.Request) (string, bool) {
	if ck, err := r.Cookie(CookieName); err == nil {
		if v := strings.TrimSpace(ck.Value); v != "" {
			return v, true
		}
	}
	if v := strings.TrimSpace(r.Header.Get(HeaderName)); v != "" {
		return v, true
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		if v := strings.TrimSpace(auth[len(bearerPrefix):]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Attach writes the token cookie.
func (c Carrier) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(CookieName, token, int(c.MaxAge/time.Second), time.Time{}))
}

// Clear expires the primary and legacy token cookies. Calling it repeatedly
// writes the same headers.
func (c Carrier) Clear(w http.ResponseWriter) {
	for _, name := range []string{CookieName, LegacyCookieName} {
		http.SetCookie(w, c.cookie(name, "", -1, time.Unix(0, 0)))
	}
}

func (c Carrier) cookie(name, value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
