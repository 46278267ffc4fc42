package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrder(t *testing.T) {
	c := New(false, 7*24*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := c.Extract(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer from-bearer")
	tok, ok := c.Extract(req)
	require.True(t, ok)
	assert.Equal(t, "from-bearer", tok)

	req.Header.Set("X-Auth-Token", "from-header")
	tok, _ = c.Extract(req)
	assert.Equal(t, "from-header", tok)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	tok, _ = c.Extract(req)
	assert.Equal(t, "from-cookie", tok)
}

func TestExtractSkipsEmptySources(t *testing.T) {
	c := New(false, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
	req.Header.Set("X-Auth-Token", "  ")
	req.Header.Set("Authorization", "bearer lower-case-scheme")

	tok, ok := c.Extract(req)
	require.True(t, ok)
	assert.Equal(t, "lower-case-scheme", tok)
}

func TestExtractIgnoresOtherSchemes(t *testing.T) {
	c := New(false, time.Hour)
	for _, h := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer    ", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", h)
		_, ok := c.Extract(req)
		assert.False(t, ok, "header %q", h)
	}
}

func TestAttachCookieAttributes(t *testing.T) {
	c := New(true, 7*24*time.Hour)
	rec := httptest.NewRecorder()
	c.Attach(rec, "tok")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, CookieName, ck.Name)
	assert.Equal(t, "tok", ck.Value)
	assert.Equal(t, 604800, ck.MaxAge)
	assert.Equal(t, "/", ck.Path)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
}

func TestAttachNotSecureOutsideProduction(t *testing.T) {
	c := New(false, time.Hour)
	rec := httptest.NewRecorder()
	c.Attach(rec, "tok")
	assert.NotContains(t, rec.Header().Get("Set-Cookie"), "Secure")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "HttpOnly")
}

func TestClearIsIdempotent(t *testing.T) {
	c := New(false, time.Hour)

	first := httptest.NewRecorder()
	c.Clear(first)
	second := httptest.NewRecorder()
	c.Clear(second)

	assert.Equal(t, first.Header().Values("Set-Cookie"), second.Header().Values("Set-Cookie"))

	cookies := first.Result().Cookies()
	require.Len(t, cookies, 2)
	names := []string{cookies[0].Name, cookies[1].Name}
	assert.ElementsMatch(t, []string{CookieName, LegacyCookieName}, names)
	for _, ck := range cookies {
		assert.Empty(t, ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
		assert.True(t, ck.HttpOnly)
	}
}
