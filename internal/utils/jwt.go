// Package utils provides the password hasher and the signed identity token
// service shared by the auth handlers and the authorization middleware.
package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "ngo-portal"

// ErrInvalidToken is returned by Verify for any token that must be rejected:
// bad signature, unexpected algorithm, malformed input, missing claims or
// expiry in the past.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the caller reconstructed from a verified token.
type Identity struct {
	SubjectID uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
}

// Token is a signed token together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens. It holds no
// mutable state after construction and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithIssuer sets the iss claim written and required by the service.
func WithIssuer(iss string) TokenOption {
	return func(s *TokenService) { s.issuer = iss }
}

// WithClock replaces time.Now, for tests that need to move time.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a service signing with secret. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the configured token horizon.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for the given subject, valid for the configured TTL.
func (s *TokenService) Issue(subjectID uint64, email string, role rbac.Role) (Token, error) {
	if subjectID == 0 {
		return Token{}, errors.New("subject id is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	cl := claims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of raw and returns the identity it
// carries. Every failure is reported as ErrInvalidToken.
func (s *TokenService) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(cl.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{SubjectID: id, Email: cl.Email, Role: rbac.Role(cl.Role)}, nil
}
