package repository

import (
	"context"
	"database/sql"

	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// RecentTransactionsPerAccount bounds the transaction summaries attached to
// each account in List.
const RecentTransactionsPerAccount = 5

// AccountRepo stores ledger accounts. Balances are kept in minor units in
// accounts.balance_cents and only TransactionRepo.Create changes them.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo returns a new AccountRepo bound to the given database.
func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountSelect = `
SELECT a.id, a.name, a.account_type, a.balance_cents, a.committee_id, a.treasurer_id, a.created_at, a.updated_at,
       c.id, c.name, u.id, u.name, u.email
FROM accounts a
JOIN committees c ON c.id = a.committee_id
JOIN users u ON u.id = a.treasurer_id`

// Create inserts a zero-balance account. Unknown committee or treasurer
// ids yield ErrReferenceNotFound.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `INSERT INTO accounts (name, account_type, balance_cents, committee_id, treasurer_id) VALUES (?, ?, 0, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.AccountType, a.CommitteeID, a.TreasurerID)
	if err != nil {
		return classify(err, ErrConflict)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := scanAccount(r.db.QueryRowContext(ctx, accountSelect+` WHERE a.id = ?`, id))
	if err != nil {
		return err
	}
	created.RecentTransactions = []model.TransactionRef{}
	*a = created
	return nil
}

// List returns every account, newest first, with its committee, treasurer
// and most recent transactions.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, accountSelect+` ORDER BY a.created_at DESC, a.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []model.Account{}
	index := map[uint64]int{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		a.RecentTransactions = []model.TransactionRef{}
		index[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return accounts, nil
	}

	const txQ = `
SELECT id, type, amount_cents, account_id, created_at FROM (
  SELECT t.*, ROW_NUMBER() OVER (PARTITION BY t.account_id ORDER BY t.created_at DESC, t.id DESC) AS rn
  FROM transactions t
) ranked
WHERE rn <= ?
ORDER BY account_id, created_at DESC, id DESC`
	txRows, err := r.db.QueryContext(ctx, txQ, RecentTransactionsPerAccount)
	if err != nil {
		return nil, err
	}
	defer txRows.Close()
	for txRows.Next() {
		var (
			ref       model.TransactionRef
			amount    int64
			accountID uint64
		)
		if err := txRows.Scan(&ref.ID, &ref.Type, &amount, &accountID, &ref.CreatedAt); err != nil {
			return nil, err
		}
		ref.Amount = model.Money(amount)
		if i, ok := index[accountID]; ok {
			accounts[i].RecentTransactions = append(accounts[i].RecentTransactions, ref)
		}
	}
	return accounts, txRows.Err()
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a       model.Account
		balance int64
		c       model.CommitteeRef
		t       model.UserRef
	)
	err := s.Scan(&a.ID, &a.Name, &a.AccountType, &balance, &a.CommitteeID, &a.TreasurerID, &a.CreatedAt, &a.UpdatedAt,
		&c.ID, &c.Name, &t.ID, &t.Name, &t.Email)
	if err != nil {
		return model.Account{}, classify(err, nil)
	}
	a.Balance = model.Money(balance)
	a.Committee = &c
	a.Treasurer = &t
	return a, nil
}
