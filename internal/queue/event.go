// Package queue defines the audit event payload exchanged over RabbitMQ and
// the consumer that persists it.
package queue

import (
	"encoding/json"
	"time"

	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// AuditQueueName is the durable queue carrying audit events.
const AuditQueueName = "audit.events"

// Audit actions.
const (
	ActionRegister   = "REGISTER"
	ActionLogin      = "LOGIN"
	ActionActivate   = "ACTIVATE"
	ActionDeactivate = "DEACTIVATE"
	ActionCreate     = "CREATE"
)

// Audited entities.
const (
	EntityUser        = "user"
	EntityCommittee   = "committee"
	EntityAccount     = "account"
	EntityTransaction = "transaction"
)

// AuditEvent is published for every state-changing request. It carries
// enough to build an audit_logs row without querying the primary store.
type AuditEvent struct {
	EventID    string          `json:"event_id"`
	UserID     uint64          `json:"user_id"`
	Action     string          `json:"action"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// AuditLog converts the event into the row persisted in audit_logs.
func (e AuditEvent) AuditLog() model.AuditLog {
	return model.AuditLog{
		UserID:   e.UserID,
		Action:   e.Action,
		Entity:   e.Entity,
		EntityID: e.EntityID,
		Changes:  string(e.Changes),
	}
}
