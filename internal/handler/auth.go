package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
	"github.com/ankur-foundation/ngo-portal/internal/session"
	"github.com/ankur-foundation/ngo-portal/internal/utils"
)

// bcrypt ignores input beyond this many bytes, so longer passwords are
// rejected rather than silently truncated.
const maxPasswordBytes = 72

// AuthHandler bundles dependencies for the /auth endpoints.
type AuthHandler struct {
	Users   UserStore
	Hasher  utils.Hasher
	Tokens  *utils.TokenService
	Carrier session.Carrier
	Audit   *Auditor
	Metrics *metrics.Metrics
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResp struct {
	User model.PublicUser `json:"user"`
}

type loginResp struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

var errInvalidCredentials = apperr.Authentication("Invalid credentials")

// Register creates a user. The role defaults to MEMBER; an unknown role is
// rejected.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperr.Validation("Name, email, and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return apperr.Validation("email is invalid")
	}
	if len(req.Password) > maxPasswordBytes {
		return apperr.Validation("password must be at most 72 bytes")
	}
	role := rbac.RoleMember
	if strings.TrimSpace(req.Role) != "" {
		r, ok := rbac.ParseRole(req.Role)
		if !ok {
			return apperr.Validation("role is invalid")
		}
		role = r
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return apperr.Internal("Failed to register user", err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u := model.User{Email: req.Email, PasswordHash: hash, Name: req.Name, Role: role, IsActive: true}
	if err := h.Users.Create(ctx, &u); err != nil {
		return storeErr(err, "User not found", "Failed to register user")
	}

	h.Audit.record(c, u.ID, queue.ActionRegister, queue.EntityUser, u.ID, map[string]any{"email": u.Email, "role": u.Role})
	return c.JSON(http.StatusCreated, userResp{User: u.Public()})
}

// Login verifies credentials, issues a token and sets the session cookie.
// Unknown emails and wrong passwords produce the same 401. The inactive
// check runs after the password check, so only a caller holding the right
// password learns that an account is disabled.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("Email and password are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		h.Hasher.VerifyMissing(req.Password)
		h.Metrics.AuthDecision(metrics.OutcomeLoginFailure)
		return errInvalidCredentials
	}
	if err != nil {
		return apperr.Internal("Internal server error during login", err)
	}
	if !h.Hasher.Verify(u.PasswordHash, req.Password) {
		h.Metrics.AuthDecision(metrics.OutcomeLoginFailure)
		return errInvalidCredentials
	}
	if !u.IsActive {
		h.Metrics.AuthDecision(metrics.OutcomeLoginInactive)
		return apperr.Authorization("User account is inactive")
	}

	tok, err := h.Tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return apperr.Internal("Internal server error during login", err)
	}
	h.Carrier.Attach(c.Response(), tok.Value)
	h.Metrics.AuthDecision(metrics.OutcomeLoginSuccess)
	h.Audit.record(c, u.ID, queue.ActionLogin, queue.EntityUser, u.ID, nil)

	return c.JSON(http.StatusOK, loginResp{User: u.Public(), Token: tok.Value})
}

// Profile returns the caller's own record. It verifies the token itself
// rather than running behind Authenticate because a deleted user is a 404
// here, not a 401.
func (h *AuthHandler) Profile(c echo.Context) error {
	raw, ok := h.Carrier.Extract(c.Request())
	if !ok {
		return apperr.Authentication("No token provided")
	}
	id, err := h.Tokens.Verify(raw)
	if err != nil {
		return apperr.Authentication("Invalid or expired token")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.SubjectID)
	if err != nil {
		return storeErr(err, "User not found", "Failed to load profile")
	}
	if !u.IsActive {
		return apperr.Authorization("User account is inactive")
	}
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// Logout clears the session cookies. It needs no valid token and is
// idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Carrier.Clear(c.Response())
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
