package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(MinBcryptCost)
	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, h.Verify(hash, "password123"))
	assert.False(t, h.Verify(hash, "password124"))
	assert.False(t, h.Verify("not-a-hash", "password123"))
}

func TestHasherEnforcesMinimumCost(t *testing.T) {
	h := NewHasher(4)
	assert.Equal(t, MinBcryptCost, h.Cost())

	hash, err := h.Hash("pw")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, MinBcryptCost)
}

func TestHasherSaltsEachHash(t *testing.T) {
	h := NewHasher(MinBcryptCost)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
