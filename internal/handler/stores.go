package handler

import (
	"context"

	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// Store interfaces consumed by the handlers. The MySQL repositories and the
// in-memory store both satisfy them.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetActive(ctx context.Context, id uint64, active bool) (model.User, error)
}

type CommitteeStore interface {
	Create(ctx context.Context, c *model.Committee) error
	ListActive(ctx context.Context) ([]model.Committee, error)
}

type AccountStore interface {
	Create(ctx context.Context, a *model.Account) error
	List(ctx context.Context) ([]model.Account, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	List(ctx context.Context, accountID uint64) ([]model.Transaction, error)
}

type AuditLogStore interface {
	Create(ctx context.Context, l *model.AuditLog) error
	List(ctx context.Context, entity string, limit int) ([]model.AuditLog, error)
}
