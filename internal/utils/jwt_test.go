package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newService(t *testing.T, secret string, clock *fakeClock) *TokenService {
	t.Helper()
	svc, err := NewTokenService(secret, 0, WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestIssueThenVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, "s3cret", clock)

	tok, err := svc.Issue(42, "alice@x.org", rbac.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(7*24*time.Hour), tok.ExpiresAt)

	id, err := svc.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, Identity{SubjectID: 42, Email: "alice@x.org", Role: rbac.RoleMember}, id)
}

func TestVerifyIsRepeatable(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newService(t, "s3cret", clock)
	tok, err := svc.Issue(7, "bob@x.org", rbac.RoleTreasurer)
	require.NoError(t, err)

	first, err := svc.Verify(tok.Value)
	require.NoError(t, err)
	second, err := svc.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVerifyRejectsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, "s3cret", clock)
	tok, err := svc.Issue(1, "a@x.org", rbac.RolePresident)
	require.NoError(t, err)

	clock.t = tok.ExpiresAt.Add(-time.Second)
	_, err = svc.Verify(tok.Value)
	require.NoError(t, err)

	clock.t = tok.ExpiresAt
	_, err = svc.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.t = tok.ExpiresAt.Add(time.Hour)
	_, err = svc.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newService(t, "secret-a", clock)
	verifier := newService(t, "secret-b", clock)

	tok, err := issuer.Issue(1, "a@x.org", rbac.RoleMember)
	require.NoError(t, err)

	_, err = verifier.Verify(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	svc := newService(t, "s3cret", &fakeClock{t: time.Now()})
	for _, raw := range []string{"", "   ", "not-a-token", "a.b.c", strings.Repeat("x", 300)} {
		_, err := svc.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	svc := newService(t, "s3cret", &fakeClock{t: time.Now()})

	now := time.Now()
	cl := jwt.MapClaims{
		"sub": "1", "email": "a@x.org", "role": "PRESIDENT",
		"iss": "ngo-portal", "exp": now.Add(time.Hour).Unix(), "iat": now.Unix(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, cl).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, cl).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = svc.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingSubjectOrExpiry(t *testing.T) {
	svc := newService(t, "s3cret", &fakeClock{t: time.Now()})
	now := time.Now()

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "iss": "ngo-portal", "iat": now.Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = svc.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "iss": "ngo-portal", "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = svc.Verify(badSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("  ", time.Hour)
	assert.Error(t, err)

	svc, err := NewTokenService("x", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, svc.TTL())
}

func TestIssueRequiresSubject(t *testing.T) {
	svc := newService(t, "s3cret", &fakeClock{t: time.Now()})
	_, err := svc.Issue(0, "a@x.org", rbac.RoleMember)
	assert.Error(t, err)
}
