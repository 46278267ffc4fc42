package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRolesCommand(t *testing.T) {
	out, err := run(t, "", "roles")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[1], "PRESIDENT"))
	assert.Contains(t, lines[1], "DELETE_DATA")
	assert.Contains(t, out, "View Only - View organizational information")
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := run(t, "", "hash-password", "password123")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)

	out, err = run(t, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("from-stdin")))

	_, err = run(t, "", "hash-password")
	assert.EqualError(t, err, "empty password")
}

func TestSeedRejectsMissingFile(t *testing.T) {
	_, err := run(t, "", "seed", "--file", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestSetRoleValidatesRole(t *testing.T) {
	_, err := run(t, "", "set-role", "--email", "a@x.org", "--role", "KING")
	assert.EqualError(t, err, `unknown role "KING"`)

	_, err = run(t, "", "set-role", "--role", "MEMBER")
	assert.Error(t, err)
}
