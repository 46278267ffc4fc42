package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/middleware"
	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
)

// UserHandler serves /admin/users.
type UserHandler struct {
	Users UserStore
	Audit *Auditor
}

type setActiveReq struct {
	UserID   uint64 `json:"userId"`
	IsActive *bool  `json:"isActive"`
}

// List returns every user without credentials, newest first.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return apperr.Internal("Failed to fetch users", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, map[string]any{"users": out})
}

// SetActive activates or deactivates a user.
func (h *UserHandler) SetActive(c echo.Context) error {
	var req setActiveReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.UserID == 0 || req.IsActive == nil {
		return apperr.Validation("userId and isActive are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.SetActive(ctx, req.UserID, *req.IsActive)
	if err != nil {
		return storeErr(err, "User not found", "Failed to update user")
	}

	action := queue.ActionDeactivate
	if u.IsActive {
		action = queue.ActionActivate
	}
	actor, _ := middleware.IdentityFrom(c)
	h.Audit.record(c, actor.SubjectID, action, queue.EntityUser, u.ID, map[string]bool{"isActive": u.IsActive})
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}
