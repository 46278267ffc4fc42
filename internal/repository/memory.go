package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

// Memory is an in-process store holding every table behind one lock. It
// backs STORE_DRIVER=memory and the end-to-end tests. The per-entity views
// returned by Users, Committees, Accounts, Transactions and AuditLogs have
// the same method sets as the MySQL repositories.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time

	seq          uint64
	users        map[uint64]model.User
	emails       map[string]uint64
	committees   map[uint64]model.Committee
	accounts     map[uint64]model.Account
	transactions map[uint64]model.Transaction
	auditLogs    map[uint64]model.AuditLog
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:          func() time.Time { return time.Now().UTC() },
		users:        map[uint64]model.User{},
		emails:       map[string]uint64{},
		committees:   map[uint64]model.Committee{},
		accounts:     map[uint64]model.Account{},
		transactions: map[uint64]model.Transaction{},
		auditLogs:    map[uint64]model.AuditLog{},
	}
}

func (m *Memory) Users() *MemoryUserRepo               { return &MemoryUserRepo{m} }
func (m *Memory) Committees() *MemoryCommitteeRepo     { return &MemoryCommitteeRepo{m} }
func (m *Memory) Accounts() *MemoryAccountRepo         { return &MemoryAccountRepo{m} }
func (m *Memory) Transactions() *MemoryTransactionRepo { return &MemoryTransactionRepo{m} }
func (m *Memory) AuditLogs() *MemoryAuditLogRepo       { return &MemoryAuditLogRepo{m} }

// nextID must be called with mu held for writing. Ids are shared across
// tables, which keeps them strictly increasing in insertion order.
func (m *Memory) nextID() uint64 {
	m.seq++
	return m.seq
}

// descending returns the keys of a map sorted newest first.
func descending[V any](rows map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids
}

func userRef(u model.User) *model.UserRef {
	return &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// MemoryUserRepo is the user view of Memory.
type MemoryUserRepo struct{ m *Memory }

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := m.emails[email]; ok {
		return ErrEmailExists
	}
	now := m.now()
	created := *u
	created.ID = m.nextID()
	created.Email = email
	created.CreatedAt = now
	created.UpdatedAt = now
	m.users[created.ID] = created
	m.emails[email] = created.ID
	*u = created
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[NormalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]model.User, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.User, 0, len(m.users))
	for _, id := range descending(m.users) {
		out = append(out, m.users[id])
	}
	return out, nil
}

func (r *MemoryUserRepo) SetActive(_ context.Context, id uint64, active bool) (model.User, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = m.now()
	m.users[id] = u
	return u, nil
}

// SetRole mirrors UserRepo.SetRole. The memory store lives inside one
// process, so portalctl cannot reach it; only tests change roles here.
func (r *MemoryUserRepo) SetRole(_ context.Context, id uint64, role rbac.Role) (model.User, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = m.now()
	m.users[id] = u
	return u, nil
}

// MemoryCommitteeRepo is the committee view of Memory.
type MemoryCommitteeRepo struct{ m *Memory }

func (r *MemoryCommitteeRepo) Create(_ context.Context, c *model.Committee) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	president, ok := m.users[c.PresidentID]
	if !ok {
		return ErrReferenceNotFound
	}
	for _, existing := range m.committees {
		if existing.Name == c.Name {
			return ErrConflict
		}
	}
	now := m.now()
	created := model.Committee{
		ID:          m.nextID(),
		Name:        c.Name,
		Description: c.Description,
		PresidentID: c.PresidentID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.committees[created.ID] = created
	created.President = userRef(president)
	created.Accounts = []model.AccountRef{}
	*c = created
	return nil
}

func (r *MemoryCommitteeRepo) ListActive(_ context.Context) ([]model.Committee, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Committee{}
	for _, id := range descending(m.committees) {
		c := m.committees[id]
		if !c.IsActive {
			continue
		}
		c.President = userRef(m.users[c.PresidentID])
		c.Accounts = []model.AccountRef{}
		accIDs := descending(m.accounts)
		slices.Reverse(accIDs)
		for _, accID := range accIDs {
			a := m.accounts[accID]
			if a.CommitteeID != c.ID {
				continue
			}
			balance := a.Balance
			c.Accounts = append(c.Accounts, model.AccountRef{ID: a.ID, Name: a.Name, AccountType: a.AccountType, Balance: &balance})
		}
		out = append(out, c)
	}
	return out, nil
}

// MemoryAccountRepo is the account view of Memory.
type MemoryAccountRepo struct{ m *Memory }

func (r *MemoryAccountRepo) Create(_ context.Context, a *model.Account) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.committees[a.CommitteeID]; !ok {
		return ErrReferenceNotFound
	}
	if _, ok := m.users[a.TreasurerID]; !ok {
		return ErrReferenceNotFound
	}
	now := m.now()
	created := model.Account{
		ID:          m.nextID(),
		Name:        a.Name,
		AccountType: a.AccountType,
		CommitteeID: a.CommitteeID,
		TreasurerID: a.TreasurerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.accounts[created.ID] = created
	*a = m.decorateAccount(created)
	return nil
}

func (r *MemoryAccountRepo) List(_ context.Context) ([]model.Account, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Account, 0, len(m.accounts))
	for _, id := range descending(m.accounts) {
		out = append(out, m.decorateAccount(m.accounts[id]))
	}
	return out, nil
}

// decorateAccount must be called with mu held.
func (m *Memory) decorateAccount(a model.Account) model.Account {
	c := m.committees[a.CommitteeID]
	a.Committee = &model.CommitteeRef{ID: c.ID, Name: c.Name}
	a.Treasurer = userRef(m.users[a.TreasurerID])
	a.RecentTransactions = []model.TransactionRef{}
	for _, id := range descending(m.transactions) {
		t := m.transactions[id]
		if t.AccountID != a.ID {
			continue
		}
		a.RecentTransactions = append(a.RecentTransactions, model.TransactionRef{
			ID: t.ID, Type: t.Type, Amount: t.Amount, CreatedAt: t.CreatedAt,
		})
		if len(a.RecentTransactions) == RecentTransactionsPerAccount {
			break
		}
	}
	return a
}

// MemoryTransactionRepo is the transaction view of Memory.
type MemoryTransactionRepo struct{ m *Memory }

// Create records t and applies its balance delta under the store lock.
func (r *MemoryTransactionRepo) Create(_ context.Context, t *model.Transaction) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[t.AccountID]
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	created := model.Transaction{
		ID:          m.nextID(),
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		AccountID:   t.AccountID,
		CreatedAt:   now,
	}
	m.transactions[created.ID] = created

	acc.Balance += model.BalanceDelta(t.Type, t.Amount)
	acc.UpdatedAt = now
	m.accounts[acc.ID] = acc

	created.Account = &model.AccountRef{ID: acc.ID, Name: acc.Name, AccountType: acc.AccountType}
	*t = created
	return nil
}

func (r *MemoryTransactionRepo) List(_ context.Context, accountID uint64) ([]model.Transaction, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Transaction{}
	for _, id := range descending(m.transactions) {
		t := m.transactions[id]
		if accountID != 0 && t.AccountID != accountID {
			continue
		}
		a := m.accounts[t.AccountID]
		t.Account = &model.AccountRef{ID: a.ID, Name: a.Name, AccountType: a.AccountType}
		out = append(out, t)
	}
	return out, nil
}

// MemoryAuditLogRepo is the audit log view of Memory.
type MemoryAuditLogRepo struct{ m *Memory }

func (r *MemoryAuditLogRepo) Create(_ context.Context, l *model.AuditLog) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[l.UserID]
	if !ok {
		return ErrReferenceNotFound
	}
	created := *l
	created.ID = m.nextID()
	created.CreatedAt = m.now()
	created.User = nil
	m.auditLogs[created.ID] = created

	created.User = &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	*l = created
	return nil
}

func (r *MemoryAuditLogRepo) List(_ context.Context, entity string, limit int) ([]model.AuditLog, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit = ClampAuditLimit(limit)
	out := []model.AuditLog{}
	for _, id := range descending(m.auditLogs) {
		l := m.auditLogs[id]
		if entity != "" && l.Entity != entity {
			continue
		}
		u := m.users[l.UserID]
		l.User = &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
