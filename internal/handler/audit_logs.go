package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/apperr"
	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// AuditLogHandler serves /admin/audit-logs.
type AuditLogHandler struct {
	Logs AuditLogStore
}

type createAuditLogReq struct {
	UserID   uint64          `json:"userId"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID json.RawMessage `json:"entityId"`
	Changes  json.RawMessage `json:"changes"`
}

// List returns entries newest first, filtered by ?entity= and bounded by
// ?limit= (default 100, at most 500).
func (h *AuditLogHandler) List(c echo.Context) error {
	limit := 0
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.Validation("limit must be an integer")
		}
		limit = n
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	logs, err := h.Logs.List(ctx, strings.TrimSpace(c.QueryParam("entity")), limit)
	if err != nil {
		return apperr.Internal("Failed to fetch audit logs", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"logs": logs})
}

// Create appends an entry. changes may be any JSON value; a JSON string is
// stored as its contents when they are themselves JSON.
func (h *AuditLogHandler) Create(c echo.Context) error {
	var req createAuditLogReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Action = strings.TrimSpace(req.Action)
	req.Entity = strings.TrimSpace(req.Entity)
	if req.UserID == 0 || req.Action == "" || req.Entity == "" {
		return apperr.Validation("userId, action, and entity are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	entry := model.AuditLog{
		UserID:   req.UserID,
		Action:   req.Action,
		Entity:   req.Entity,
		EntityID: rawScalar(req.EntityID),
		Changes:  normalizeChanges(req.Changes),
	}
	if err := h.Logs.Create(ctx, &entry); err != nil {
		return storeErr(err, "User not found", "Failed to create audit log")
	}
	return c.JSON(http.StatusCreated, entry)
}

func normalizeChanges(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "{}"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if json.Valid([]byte(s)) {
			return s
		}
	}
	return trimmed
}

// rawScalar accepts an id sent either as a JSON string or a number.
func rawScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
