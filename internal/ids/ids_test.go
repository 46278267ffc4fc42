package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsSortedAndValid(t *testing.T) {
	prev := New()
	assert.True(t, Valid(prev))
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
	assert.False(t, Valid("not-a-ulid"))
	assert.False(t, Valid(""))
}
