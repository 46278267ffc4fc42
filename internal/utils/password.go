package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest work factor the hasher will use.
const MinBcryptCost = 12

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, raised to MinBcryptCost if lower.
func NewHasher(cost int) Hasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return Hasher{cost: cost}
}

// Cost reports the effective bcrypt cost.
func (h Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt hash of plain.
func (h Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares plain against hash using bcrypt's constant-time check.
func (h Hasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// VerifyMissing does the work of one Verify against a throwaway hash and
// discards the result. Login calls it for unknown emails so both failure paths take
// about the same time.
func (h Hasher) VerifyMissing(plain string) {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
}
