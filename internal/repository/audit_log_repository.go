package repository

import (
	"context"
	"database/sql"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

// Audit log listing bounds.
const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 500
)

// ClampAuditLimit applies the default and the upper bound to a requested
// page size.
func ClampAuditLimit(limit int) int {
	if limit <= 0 {
		return DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		return MaxAuditLimit
	}
	return limit
}

// AuditLogRepo is an append-only store for audit entries.
type AuditLogRepo struct {
	db *sql.DB
}

// NewAuditLogRepo returns a new AuditLogRepo bound to the given database.
func NewAuditLogRepo(db *sql.DB) *AuditLogRepo { return &AuditLogRepo{db: db} }

const auditSelect = `
SELECT l.id, l.user_id, l.action, l.entity, l.entity_id, l.changes, l.created_at,
       u.id, u.name, u.email, u.role
FROM audit_logs l
JOIN users u ON u.id = l.user_id`

// Create appends an entry. An unknown user id yields ErrReferenceNotFound.
func (r *AuditLogRepo) Create(ctx context.Context, l *model.AuditLog) error {
	const q = `INSERT INTO audit_logs (user_id, action, entity, entity_id, changes) VALUES (?, ?, ?, ?, ?)`
	var changes any
	if l.Changes != "" {
		changes = l.Changes
	}
	res, err := r.db.ExecContext(ctx, q, l.UserID, l.Action, l.Entity, l.EntityID, changes)
	if err != nil {
		return classify(err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanAuditLog(r.db.QueryRowContext(ctx, auditSelect+` WHERE l.id = ?`, id))
	if err != nil {
		return err
	}
	*l = created
	return nil
}

// List returns entries newest first, optionally filtered by entity name.
// The limit is clamped with ClampAuditLimit.
func (r *AuditLogRepo) List(ctx context.Context, entity string, limit int) ([]model.AuditLog, error) {
	q := auditSelect
	var args []any
	if entity != "" {
		q += ` WHERE l.entity = ?`
		args = append(args, entity)
	}
	q += ` ORDER BY l.created_at DESC, l.id DESC LIMIT ?`
	args = append(args, ClampAuditLimit(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.AuditLog{}
	for rows.Next() {
		l, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanAuditLog(s rowScanner) (model.AuditLog, error) {
	var (
		l        model.AuditLog
		entityID sql.NullString
		changes  sql.NullString
		u        model.UserRef
		role     string
	)
	err := s.Scan(&l.ID, &l.UserID, &l.Action, &l.Entity, &entityID, &changes, &l.CreatedAt,
		&u.ID, &u.Name, &u.Email, &role)
	if err != nil {
		return model.AuditLog{}, classify(err, nil)
	}
	l.EntityID = entityID.String
	l.Changes = changes.String
	u.Role = rbac.Role(role)
	l.User = &u
	return l, nil
}
