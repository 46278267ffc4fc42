package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	ok := map[string]Money{
		"0":       0,
		"12":      1200,
		"12.5":    1250,
		"12.05":   1205,
		".75":     75,
		"-3.10":   -310,
		"+4":      400,
		"1000000": 100000000,
	}
	for in, want := range ok {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "-", "abc", "1.234", "12.", "1e3", "+-5", "1.2.3"} {
		_, err := ParseMoney(in)
		assert.Error(t, err, in)
	}
}

func TestMoneyJSON(t *testing.T) {
	var body struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 150.5}`), &body))
	assert.Equal(t, Money(15050), body.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "20"}`), &body))
	assert.Equal(t, Money(2000), body.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": 1.001}`), &body))

	out, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{A: 1205, B: -7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 12.05, "b": -0.07}`, string(out))
}

func TestBalanceDelta(t *testing.T) {
	assert.Equal(t, Money(500), BalanceDelta(TxIncome, 500))
	assert.Equal(t, Money(-500), BalanceDelta(TxExpense, 500))
	assert.Equal(t, Money(0), BalanceDelta(TxTransfer, 500))
	assert.True(t, ValidTransactionType(TxTransfer))
	assert.False(t, ValidTransactionType("REFUND"))
}
