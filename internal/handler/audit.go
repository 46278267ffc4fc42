package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ankur-foundation/ngo-portal/internal/ids"
	"github.com/ankur-foundation/ngo-portal/internal/metrics"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
	"github.com/ankur-foundation/ngo-portal/internal/service"
)

// Auditor records audit events for successful mutations. A nil Auditor or
// one without a publisher records nothing. Failures are logged and counted,
// never returned.
type Auditor struct {
	Publisher service.AuditPublisher
	Metrics   *metrics.Metrics
}

func (a *Auditor) record(c echo.Context, actor uint64, action, entity string, entityID uint64, changes any) {
	if a == nil || a.Publisher == nil || actor == 0 {
		return
	}
	ev := queue.AuditEvent{
		EventID:    ids.New(),
		UserID:     actor,
		Action:     action,
		Entity:     entity,
		RequestID:  c.Response().Header().Get(echo.HeaderXRequestID),
		OccurredAt: time.Now().UTC(),
	}
	if entityID != 0 {
		ev.EntityID = strconv.FormatUint(entityID, 10)
	}
	if changes != nil {
		if raw, err := json.Marshal(changes); err == nil {
			ev.Changes = raw
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()
	if err := a.Publisher.Publish(ctx, ev); err != nil {
		a.Metrics.AuditEvent("failed")
		c.Logger().Warnf("audit: %s %s/%s by %d not recorded: %v", action, entity, ev.EntityID, actor, err)
		return
	}
	a.Metrics.AuditEvent("published")
}
