package repository

import (
	"context"
	"database/sql"

	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// TransactionRepo records money movements and keeps account balances in
// step with them.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionSelect = `
SELECT t.id, t.type, t.amount_cents, t.description, t.account_id, t.created_at,
       a.id, a.name, a.account_type
FROM transactions t
JOIN accounts a ON a.id = t.account_id`

// Create inserts t and applies its balance delta to the owning account in
// the same database transaction. The account row is locked first so an
// unknown account is reported as ErrNotFound before anything is written.
func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = ? FOR UPDATE`, t.AccountID).Scan(&locked); err != nil {
		return classify(err, nil)
	}

	const ins = `INSERT INTO transactions (type, amount_cents, description, account_id) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, t.Type, int64(t.Amount), t.Description, t.AccountID)
	if err != nil {
		return classify(err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if delta := model.BalanceDelta(t.Type, t.Amount); delta != 0 {
		const upd = `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, int64(delta), t.AccountID); err != nil {
			return err
		}
	}

	created, err := scanTransaction(tx.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*t = created
	return nil
}

// List returns transactions newest first. A non-zero accountID restricts
// the result to that account.
func (r *TransactionRepo) List(ctx context.Context, accountID uint64) ([]model.Transaction, error) {
	q := transactionSelect
	var args []any
	if accountID != 0 {
		q += ` WHERE t.account_id = ?`
		args = append(args, accountID)
	}
	q += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(s rowScanner) (model.Transaction, error) {
	var (
		t      model.Transaction
		amount int64
		desc   sql.NullString
		a      model.AccountRef
	)
	err := s.Scan(&t.ID, &t.Type, &amount, &desc, &t.AccountID, &t.CreatedAt, &a.ID, &a.Name, &a.AccountType)
	if err != nil {
		return model.Transaction{}, classify(err, nil)
	}
	t.Amount = model.Money(amount)
	t.Description = desc.String
	t.Account = &a
	return t, nil
}
