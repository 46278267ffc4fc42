package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
)

func seedLedger(t *testing.T, m *Memory) (model.User, model.Committee, model.Account) {
	t.Helper()
	ctx := context.Background()
	u := model.User{Email: "Treasurer@Example.org", Name: "Tara", Role: rbac.RoleTreasurer, IsActive: true}
	require.NoError(t, m.Users().Create(ctx, &u))
	c := model.Committee{Name: "Relief", PresidentID: u.ID}
	require.NoError(t, m.Committees().Create(ctx, &c))
	a := model.Account{Name: "Main", AccountType: "BANK", CommitteeID: c.ID, TreasurerID: u.ID}
	require.NoError(t, m.Accounts().Create(ctx, &a))
	return u, c, a
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	users := m.Users()

	u := model.User{Email: "Alice@Example.org", Name: "Alice", Role: rbac.RoleMember, IsActive: true}
	require.NoError(t, users.Create(ctx, &u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice@example.org", u.Email)

	dup := model.User{Email: "alice@example.org"}
	assert.ErrorIs(t, users.Create(ctx, &dup), ErrEmailExists)

	got, err := users.GetByEmail(ctx, " ALICE@example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	off, err := users.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	_, err = users.SetActive(ctx, 999, true)
	assert.ErrorIs(t, err, ErrNotFound)

	b := model.User{Email: "bob@example.org", Name: "Bob", Role: rbac.RoleAuditor}
	require.NoError(t, users.Create(ctx, &b))
	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID, "newest first")
}

func TestMemoryLedgerBalance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _, acc := seedLedger(t, m)
	txs := m.Transactions()

	for _, tx := range []model.Transaction{
		{Type: model.TxIncome, Amount: 10000, AccountID: acc.ID},
		{Type: model.TxExpense, Amount: 2550, AccountID: acc.ID},
		{Type: model.TxTransfer, Amount: 999, AccountID: acc.ID},
	} {
		tx := tx
		require.NoError(t, txs.Create(ctx, &tx))
		require.NotNil(t, tx.Account)
	}
	assert.Equal(t, model.Money(7450), balanceOf(t, m, acc.ID))

	err := txs.Create(ctx, &model.Transaction{Type: model.TxIncome, Amount: 1, AccountID: 404})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := txs.List(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, model.TxTransfer, list[0].Type)

	accounts, err := m.Accounts().List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Len(t, accounts[0].RecentTransactions, 3)
	assert.Equal(t, "Relief", accounts[0].Committee.Name)
}

func TestMemoryConcurrentTransactions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, _, acc := seedLedger(t, m)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Transactions().Create(ctx, &model.Transaction{Type: model.TxIncome, Amount: 100, AccountID: acc.ID})
		}()
	}
	wg.Wait()

	assert.Equal(t, model.Money(5000), balanceOf(t, m, acc.ID))
}

func balanceOf(t *testing.T, m *Memory, id uint64) model.Money {
	t.Helper()
	accounts, err := m.Accounts().List(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == id {
			return a.Balance
		}
	}
	t.Fatalf("account %d not found", id)
	return 0
}

func TestMemoryCommittees(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u, c, acc := seedLedger(t, m)

	assert.ErrorIs(t, m.Committees().Create(ctx, &model.Committee{Name: "Relief", PresidentID: u.ID}), ErrConflict)
	assert.ErrorIs(t, m.Committees().Create(ctx, &model.Committee{Name: "Other", PresidentID: 999}), ErrReferenceNotFound)
	assert.ErrorIs(t, m.Accounts().Create(ctx, &model.Account{Name: "x", CommitteeID: 999, TreasurerID: u.ID}), ErrReferenceNotFound)

	list, err := m.Committees().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
	require.Len(t, list[0].Accounts, 1)
	assert.Equal(t, acc.ID, list[0].Accounts[0].ID)
	assert.Equal(t, u.Name, list[0].President.Name)
}

func TestMemoryAuditLogs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u, _, _ := seedLedger(t, m)
	logs := m.AuditLogs()

	for i := 0; i < 3; i++ {
		require.NoError(t, logs.Create(ctx, &model.AuditLog{UserID: u.ID, Action: "CREATE", Entity: "account"}))
	}
	require.NoError(t, logs.Create(ctx, &model.AuditLog{UserID: u.ID, Action: "LOGIN", Entity: "user"}))
	assert.ErrorIs(t, logs.Create(ctx, &model.AuditLog{UserID: 999, Action: "LOGIN", Entity: "user"}), ErrReferenceNotFound)

	all, err := logs.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "LOGIN", all[0].Action)

	accounts, err := logs.List(ctx, "account", 2)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, rbac.RoleTreasurer, accounts[0].User.Role)
}
