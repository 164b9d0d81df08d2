package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	t.Parallel()
	a, b := New(42), New(42)
	for range 10 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestCryptoProducesVaryingValues(t *testing.T) {
	t.Parallel()
	r := Crypto()
	seen := make(map[int]bool)
	for range 64 {
		seen[r.IntN(1<<30)] = true
	}
	assert.Greater(t, len(seen), 60)
}
