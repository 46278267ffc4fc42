package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/rbac"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }

func memStores(m *repository.Memory) Stores {
	return Stores{Users: m.Users(), Committees: m.Committees(), Accounts: m.Accounts(), Transactions: m.Transactions()}
}

func TestLoadDemoSeed(t *testing.T) {
	f, err := Load("../../configs/seed.yaml")
	require.NoError(t, err)
	require.Len(t, f.Users, 5)

	roles := map[string]bool{}
	for _, u := range f.Users {
		roles[u.Role] = true
	}
	for _, r := range rbac.Roles() {
		assert.True(t, roles[string(r)], "seed has a %s", r)
	}
	assert.Equal(t, Amount(5000000), f.Accounts[0].OpeningBalance)
}

func TestApplyIsRepeatable(t *testing.T) {
	f, err := Load("../../configs/seed.yaml")
	require.NoError(t, err)
	ctx := context.Background()
	m := repository.NewMemory()

	rep, err := Apply(ctx, memStores(m), plainHasher{}, f)
	require.NoError(t, err)
	assert.Equal(t, Report{Users: 5, Committees: 2, Accounts: 2, Transactions: 4}, rep)

	pres, err := m.Users().GetByEmail(ctx, "president@ankur.org")
	require.NoError(t, err)
	assert.Equal(t, "plain:password123", pres.PasswordHash)
	assert.Equal(t, rbac.RolePresident, pres.Role)

	accounts, err := m.Accounts().List(ctx)
	require.NoError(t, err)
	balances := map[string]model.Money{}
	for _, a := range accounts {
		balances[a.Name] = a.Balance
	}
	assert.Equal(t, model.Money(5350000), balances["General Fund"])
	assert.Equal(t, model.Money(2500000), balances["Emergency Fund"])

	rep, err = Apply(ctx, memStores(m), plainHasher{}, f)
	require.NoError(t, err)
	assert.Zero(t, rep.Users)
	assert.Zero(t, rep.Committees)
	users, err := m.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown field": "userz: []",
		"bad role":      "password: x\nusers:\n  - {name: A, email: a@x.org, role: KING}",
		"no password":   "users:\n  - {name: A, email: a@x.org, role: MEMBER}",
		"dangling committee": `accounts:
  - {name: Main, type: BANK, committee: Nope, treasurer: t@x.org}`,
		"bad amount": `committees:
  - {name: C, president: p@x.org}
accounts:
  - {name: Main, type: BANK, committee: C, treasurer: t@x.org}
transactions:
  - {account: Main, type: INCOME, amount: 1.234}`,
		"bad type": `committees:
  - {name: C, president: p@x.org}
accounts:
  - {name: Main, type: BANK, committee: C, treasurer: t@x.org}
transactions:
  - {account: Main, type: GIFT, amount: 5}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}

func TestApplyUnknownTreasurer(t *testing.T) {
	f, err := Parse(strings.NewReader(`password: pw
users:
  - {name: P, email: p@x.org, role: PRESIDENT}
committees:
  - {name: C, president: p@x.org}
accounts:
  - {name: Main, type: BANK, committee: C, treasurer: ghost@x.org}
`))
	require.NoError(t, err)
	_, err = Apply(context.Background(), memStores(repository.NewMemory()), plainHasher{}, f)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
