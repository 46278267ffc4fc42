// Package seed loads demo data from a YAML file into the stores.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
)

// File is the on-disk seed document. Committees reference their president
// by email, accounts reference committee by name and treasurer by email,
// transactions reference their account by name.
type File struct {
	Password   string        `yaml:"password"`
	Users      []User        `yaml:"users"`
	Committees []Committee   `yaml:"committees"`
	Accounts   []Account     `yaml:"accounts"`
	Txs        []Transaction `yaml:"transactions"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type Committee struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	President   string `yaml:"president"`
}

type Account struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	Committee      string `yaml:"committee"`
	Treasurer      string `yaml:"treasurer"`
	OpeningBalance Amount `yaml:"opening_balance"`
}

type Transaction struct {
	Account     string `yaml:"account"`
	Type        string `yaml:"type"`
	Amount      Amount `yaml:"amount"`
	Description string `yaml:"description"`
}

// Amount is a decimal money value in a seed file, e.g. 1500 or "12.50".
type Amount model.Money

func (a *Amount) UnmarshalYAML(n *yaml.Node) error {
	m, err := model.ParseMoney(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*a = Amount(m)
	return nil
}

// Load reads and validates a seed file.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a seed document and checks that every reference resolves
// within the document or will resolve against existing users.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed: %w", err)
	}
	return f, f.validate()
}

func (f File) validate() error {
	for i, u := range f.Users {
		if u.Name == "" || u.Email == "" {
			return fmt.Errorf("users[%d]: name and email are required", i)
		}
		if _, ok := rbac.ParseRole(u.Role); !ok {
			return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
		if u.Password == "" && f.Password == "" {
			return fmt.Errorf("users[%d]: no password and no default password", i)
		}
	}
	committees := map[string]bool{}
	for i, c := range f.Committees {
		if c.Name == "" || c.President == "" {
			return fmt.Errorf("committees[%d]: name and president are required", i)
		}
		committees[c.Name] = true
	}
	accounts := map[string]bool{}
	for i, a := range f.Accounts {
		if a.Name == "" || a.Type == "" || a.Committee == "" || a.Treasurer == "" {
			return fmt.Errorf("accounts[%d]: name, type, committee and treasurer are required", i)
		}
		if !committees[a.Committee] {
			return fmt.Errorf("accounts[%d]: unknown committee %q", i, a.Committee)
		}
		if a.OpeningBalance < 0 {
			return fmt.Errorf("accounts[%d]: opening balance must not be negative", i)
		}
		accounts[a.Name] = true
	}
	for i, t := range f.Txs {
		if !accounts[t.Account] {
			return fmt.Errorf("transactions[%d]: unknown account %q", i, t.Account)
		}
		if !model.ValidTransactionType(t.Type) {
			return fmt.Errorf("transactions[%d]: unknown type %q", i, t.Type)
		}
		if t.Amount <= 0 {
			return fmt.Errorf("transactions[%d]: amount must be positive", i)
		}
	}
	return nil
}

// Users, committees, accounts and transactions the seeder writes to.
type (
	UserStore interface {
		Create(ctx context.Context, u *model.User) error
		GetByEmail(ctx context.Context, email string) (model.User, error)
	}
	CommitteeStore interface {
		Create(ctx context.Context, c *model.Committee) error
		ListActive(ctx context.Context) ([]model.Committee, error)
	}
	AccountStore interface {
		Create(ctx context.Context, a *model.Account) error
	}
	TransactionStore interface {
		Create(ctx context.Context, t *model.Transaction) error
	}
)

// Stores groups the seeder's targets.
type Stores struct {
	Users        UserStore
	Committees   CommitteeStore
	Accounts     AccountStore
	Transactions TransactionStore
}

// Hasher hashes seed passwords.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Report counts what Apply created. Existing users and committees are
// reused and not counted.
type Report struct {
	Users, Committees, Accounts, Transactions int
}

// Apply writes f into s. Users and committees that already exist are
// reused, so re-running a seed only adds accounts and transactions.
func Apply(ctx context.Context, s Stores, h Hasher, f File) (Report, error) {
	var rep Report
	users := map[string]uint64{}
	for _, su := range f.Users {
		email := repository.NormalizeEmail(su.Email)
		if existing, err := s.Users.GetByEmail(ctx, email); err == nil {
			users[email] = existing.ID
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return rep, err
		}
		pw := su.Password
		if pw == "" {
			pw = f.Password
		}
		hash, err := h.Hash(pw)
		if err != nil {
			return rep, err
		}
		role, _ := rbac.ParseRole(su.Role)
		u := model.User{Email: email, PasswordHash: hash, Name: su.Name, Role: role, IsActive: true}
		if err := s.Users.Create(ctx, &u); err != nil {
			return rep, fmt.Errorf("user %s: %w", email, err)
		}
		users[email] = u.ID
		rep.Users++
	}

	resolveUser := func(email string) (uint64, error) {
		email = repository.NormalizeEmail(email)
		if id, ok := users[email]; ok {
			return id, nil
		}
		u, err := s.Users.GetByEmail(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("user %s: %w", email, err)
		}
		users[email] = u.ID
		return u.ID, nil
	}

	committees := map[string]uint64{}
	for _, sc := range f.Committees {
		pid, err := resolveUser(sc.President)
		if err != nil {
			return rep, err
		}
		c := model.Committee{Name: sc.Name, Description: sc.Description, PresidentID: pid}
		err = s.Committees.Create(ctx, &c)
		switch {
		case err == nil:
			rep.Committees++
		case errors.Is(err, repository.ErrConflict):
			if c.ID, err = findCommittee(ctx, s.Committees, sc.Name); err != nil {
				return rep, err
			}
		default:
			return rep, fmt.Errorf("committee %s: %w", sc.Name, err)
		}
		committees[sc.Name] = c.ID
	}

	accounts := map[string]uint64{}
	for _, sa := range f.Accounts {
		tid, err := resolveUser(sa.Treasurer)
		if err != nil {
			return rep, err
		}
		a := model.Account{Name: sa.Name, AccountType: sa.Type, CommitteeID: committees[sa.Committee], TreasurerID: tid}
		if err := s.Accounts.Create(ctx, &a); err != nil {
			return rep, fmt.Errorf("account %s: %w", sa.Name, err)
		}
		accounts[sa.Name] = a.ID
		rep.Accounts++
		if sa.OpeningBalance > 0 {
			tx := model.Transaction{Type: model.TxIncome, Amount: model.Money(sa.OpeningBalance), Description: "Opening balance", AccountID: a.ID}
			if err := s.Transactions.Create(ctx, &tx); err != nil {
				return rep, fmt.Errorf("account %s opening balance: %w", sa.Name, err)
			}
			rep.Transactions++
		}
	}

	for _, st := range f.Txs {
		tx := model.Transaction{Type: st.Type, Amount: model.Money(st.Amount), Description: st.Description, AccountID: accounts[st.Account]}
		if err := s.Transactions.Create(ctx, &tx); err != nil {
			return rep, fmt.Errorf("transaction on %s: %w", st.Account, err)
		}
		rep.Transactions++
	}
	return rep, nil
}

func findCommittee(ctx context.Context, s CommitteeStore, name string) (uint64, error) {
	list, err := s.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range list {
		if c.Name == name {
			return c.ID, nil
		}
	}
	return 0, fmt.Errorf("committee %s exists but is not active", name)
}
