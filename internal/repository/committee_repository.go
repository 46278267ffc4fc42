package repository

import (
	"context"
	"database/sql"

	"github.com/ankur-foundation/ngo-portal/internal/model"
)

// CommitteeRepo stores committees. Each committee belongs to a president
// (users.id) and owns zero or more accounts.
type CommitteeRepo struct {
	db *sql.DB
}

// NewCommitteeRepo returns a new CommitteeRepo bound to the given database.
func NewCommitteeRepo(db *sql.DB) *CommitteeRepo { return &CommitteeRepo{db: db} }

const committeeSelect = `
SELECT c.id, c.name, c.description, c.president_id, c.is_active, c.created_at, c.updated_at,
       u.id, u.name, u.email
FROM committees c
JOIN users u ON u.id = c.president_id`

// Create inserts an active committee and reloads it with the president
// reference populated. A president id that does not exist yields
// ErrReferenceNotFound; a duplicate name yields ErrConflict.
func (r *CommitteeRepo) Create(ctx context.Context, c *model.Committee) error {
	const q = `INSERT INTO committees (name, description, president_id, is_active) VALUES (?, ?, ?, 1)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Description, c.PresidentID)
	if err != nil {
		return classify(err, ErrConflict)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	row := r.db.QueryRowContext(ctx, committeeSelect+` WHERE c.id = ?`, id)
	created, err := scanCommittee(row)
	if err != nil {
		return err
	}
	created.Accounts = []model.AccountRef{}
	*c = created
	return nil
}

// ListActive returns active committees, newest first, each with its
// president and account summaries.
func (r *CommitteeRepo) ListActive(ctx context.Context) ([]model.Committee, error) {
	rows, err := r.db.QueryContext(ctx, committeeSelect+` WHERE c.is_active = 1 ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	committees := []model.Committee{}
	index := map[uint64]int{}
	for rows.Next() {
		c, err := scanCommittee(rows)
		if err != nil {
			return nil, err
		}
		c.Accounts = []model.AccountRef{}
		index[c.ID] = len(committees)
		committees = append(committees, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(committees) == 0 {
		return committees, nil
	}

	const accQ = `
SELECT a.id, a.name, a.account_type, a.balance_cents, a.committee_id
FROM accounts a
JOIN committees c ON c.id = a.committee_id
WHERE c.is_active = 1
ORDER BY a.id`
	accRows, err := r.db.QueryContext(ctx, accQ)
	if err != nil {
		return nil, err
	}
	defer accRows.Close()
	for accRows.Next() {
		var (
			ref         model.AccountRef
			balance     int64
			committeeID uint64
		)
		if err := accRows.Scan(&ref.ID, &ref.Name, &ref.AccountType, &balance, &committeeID); err != nil {
			return nil, err
		}
		b := model.Money(balance)
		ref.Balance = &b
		if i, ok := index[committeeID]; ok {
			committees[i].Accounts = append(committees[i].Accounts, ref)
		}
	}
	return committees, accRows.Err()
}

func scanCommittee(s rowScanner) (model.Committee, error) {
	var (
		c    model.Committee
		desc sql.NullString
		p    model.UserRef
	)
	err := s.Scan(&c.ID, &c.Name, &desc, &c.PresidentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		&p.ID, &p.Name, &p.Email)
	if err != nil {
		return model.Committee{}, classify(err, nil)
	}
	c.Description = desc.String
	c.President = &p
	return c, nil
}
