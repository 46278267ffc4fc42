package model

import "time"

// Committee groups accounts under a president. Listing endpoints only
// return active committees.
type Committee struct {
	ID          uint64       `json:"id"`          // committees.id
	Name        string       `json:"name"`        // committees.name
	Description string       `json:"description"` // committees.description
	PresidentID uint64       `json:"presidentId"` // committees.president_id
	IsActive    bool         `json:"isActive"`    // committees.is_active
	President   *UserRef     `json:"president,omitempty"`
	Accounts    []AccountRef `json:"accounts,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"` // committees.created_at
	UpdatedAt   time.Time    `json:"updatedAt"` // committees.updated_at
}

// CommitteeRef is the short form embedded in accounts.
type CommitteeRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Account is a ledger account owned by a committee and managed by a
// treasurer. Balance is changed only by transaction inserts.
type Account struct {
	ID                 uint64           `json:"id"`          // accounts.id
	Name               string           `json:"name"`        // accounts.name
	AccountType        string           `json:"accountType"` // accounts.account_type
	Balance            Money            `json:"balance"`     // accounts.balance_cents
	CommitteeID        uint64           `json:"committeeId"` // accounts.committee_id
	TreasurerID        uint64           `json:"treasurerId"` // accounts.treasurer_id
	Committee          *CommitteeRef    `json:"committee,omitempty"`
	Treasurer          *UserRef         `json:"treasurer,omitempty"`
	RecentTransactions []TransactionRef `json:"transactions,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"` // accounts.created_at
	UpdatedAt          time.Time        `json:"updatedAt"` // accounts.updated_at
}

// AccountRef is the short form embedded in committees and transactions.
type AccountRef struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	AccountType string `json:"accountType,omitempty"`
	Balance     *Money `json:"balance,omitempty"`
}

// Transaction types.
const (
	TxIncome   = "INCOME"
	TxExpense  = "EXPENSE"
	TxTransfer = "TRANSFER"
)

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TxIncome, TxExpense, TxTransfer:
		return true
	}
	return false
}

// BalanceDelta is the change a transaction of type t and amount applies to
// its account: +amount for income, -amount for expense, zero otherwise.
func BalanceDelta(t string, amount Money) Money {
	switch t {
	case TxIncome:
		return amount
	case TxExpense:
		return -amount
	}
	return 0
}

// Transaction records a single money movement on an account.
type Transaction struct {
	ID          uint64      `json:"id"`          // transactions.id
	Type        string      `json:"type"`        // transactions.type
	Amount      Money       `json:"amount"`      // transactions.amount_cents
	Description string      `json:"description"` // transactions.description
	AccountID   uint64      `json:"accountId"`   // transactions.account_id
	Account     *AccountRef `json:"account,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"` // transactions.created_at
}

// TransactionRef is the short form embedded in account listings.
type TransactionRef struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Amount    Money     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditLog is an append-only record of who did what to which entity.
type AuditLog struct {
	ID        uint64    `json:"id"`       // audit_logs.id
	UserID    uint64    `json:"userId"`   // audit_logs.user_id
	Action    string    `json:"action"`   // audit_logs.action
	Entity    string    `json:"entity"`   // audit_logs.entity
	EntityID  string    `json:"entityId"` // audit_logs.entity_id
	Changes   string    `json:"changes"`  // audit_logs.changes (JSON text)
	User      *UserRef  `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"` // audit_logs.created_at
}
