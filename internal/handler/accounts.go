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

// AccountHandler serves /admin/accounts.
type AccountHandler struct {
	Accounts AccountStore
	Audit    *Auditor
}

type createAccountReq struct {
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
	CommitteeID uint64 `json:"committeeId"`
	TreasurerID uint64 `json:"treasurerId"`
}

// List returns all accounts with committee, treasurer and recent
// transactions.
func (h *AccountHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		return apperr.Internal("Failed to fetch accounts", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"accounts": accounts})
}

// Create opens a zero-balance account.
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AccountType = strings.TrimSpace(req.AccountType)
	if req.Name == "" || req.AccountType == "" || req.CommitteeID == 0 || req.TreasurerID == 0 {
		return apperr.Validation("All fields are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	acc := model.Account{Name: req.Name, AccountType: req.AccountType, CommitteeID: req.CommitteeID, TreasurerID: req.TreasurerID}
	if err := h.Accounts.Create(ctx, &acc); err != nil {
		return storeErr(err, "Committee or treasurer not found", "Failed to create account")
	}

	actor, _ := middleware.IdentityFrom(c)
	h.Audit.record(c, actor.SubjectID, queue.ActionCreate, queue.EntityAccount, acc.ID, req)
	return c.JSON(http.StatusCreated, acc)
}
