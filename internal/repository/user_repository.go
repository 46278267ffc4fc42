package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

const userColumns = "id,email,password_hash,name,role,is_active,created_at,updated_at"

// UserRepo is the MySQL credential store.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail lower-cases and trims an email address. Every lookup and
// insert goes through it so the unique index sees one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and fills in its ID and timestamps. PasswordHash must
// already be set.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role, is_active) VALUES (?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, string(u.Role), u.IsActive)
	if err != nil {
		return classify(err, ErrEmailExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetActive flips the is_active flag of one user in a single statement and
// returns the updated record. MySQL reports zero affected rows when the
// value did not change, so existence is decided by the follow-up read.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) (model.User, error) {
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// SetRole changes the role of one user and returns the updated record.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role rbac.Role) (model.User, error) {
	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, classify(err, nil)
	}
	u.Role = rbac.Role(role)
	return u, nil
}
