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

// TransactionHandler serves /admin/transactions.
type TransactionHandler struct {
	Transactions TransactionStore
	Audit        *Auditor
}

type createTransactionReq struct {
	Type        string       `json:"type"`
	Amount      *model.Money `json:"amount"`
	Description string       `json:"description"`
	AccountID   uint64       `json:"accountId"`
}

// List returns transactions newest first, optionally for one account.
func (h *TransactionHandler) List(c echo.Context) error {
	accountID, err := queryUint(c, "accountId")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	txs, err := h.Transactions.List(ctx, accountID)
	if err != nil {
		return apperr.Internal("Failed to fetch transactions", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"transactions": txs})
}

// Create records a transaction and adjusts the account balance: income
// adds, expense subtracts, transfer leaves it unchanged.
func (h *TransactionHandler) Create(c echo.Context) error {
	var req createTransactionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if req.Type == "" || req.Amount == nil || req.AccountID == 0 {
		return apperr.Validation("Type, amount, and accountId are required")
	}
	if !model.ValidTransactionType(req.Type) {
		return apperr.Validation("type must be INCOME, EXPENSE or TRANSFER")
	}
	if *req.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	tx := model.Transaction{Type: req.Type, Amount: *req.Amount, Description: strings.TrimSpace(req.Description), AccountID: req.AccountID}
	if err := h.Transactions.Create(ctx, &tx); err != nil {
		return storeErr(err, "Account not found", "Failed to create transaction")
	}

	actor, _ := middleware.IdentityFrom(c)
	h.Audit.record(c, actor.SubjectID, queue.ActionCreate, queue.EntityTransaction, tx.ID, map[string]any{
		"type": tx.Type, "amount": tx.Amount, "accountId": tx.AccountID,
	})
	return c.JSON(http.StatusCreated, tx)
}
