package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/middleware"
	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
)

// CommitteeHandler serves /admin/committees.
type CommitteeHandler struct {
	Committees CommitteeStore
	Audit      *Auditor
}

type createCommitteeReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PresidentID uint64 `json:"presidentId"`
}

// List returns active committees with their president and accounts.
func (h *CommitteeHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	committees, err := h.Committees.ListActive(ctx)
	if err != nil {
		return apperr.Internal("Failed to fetch committees", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"committees": committees})
}

// Create adds an active committee.
func (h *CommitteeHandler) Create(c echo.Context) error {
	var req createCommitteeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PresidentID == 0 {
		return apperr.Validation("Name and presidentId are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	committee := model.Committee{Name: req.Name, Description: strings.TrimSpace(req.Description), PresidentID: req.PresidentID}
	if err := h.Committees.Create(ctx, &committee); err != nil {
		return storeErr(err, "President not found", "Failed to create committee")
	}

	actor, _ := middleware.IdentityFrom(c)
	h.Audit.record(c, actor.SubjectID, queue.ActionCreate, queue.EntityCommittee, committee.ID, req)
	return c.JSON(http.StatusCreated, committee)
}
