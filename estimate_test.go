package hll

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearCounting(t *testing.T) {
	assert.Equal(t, 0.0, linearCounting(100, 100))
	got := linearCounting(100, 50)
	want := 100 * math.Log(2)
	assert.InDelta(t, want, got, 1e-9)
}

func TestAlphaSpecialCasesAndGeneralFormula(t *testing.T) {
	assert.Equal(t, 0.673, alpha(4))
	assert.Equal(t, 0.697, alpha(5))
	assert.Equal(t, 0.709, alpha(6))
	assert.InDelta(t, 0.7213/(1+1.079/(1<<14)), alpha(14), 1e-12)
}

func TestDenseEstimateAccuracyWithinErrorBound(t *testing.T) {
	precision := uint8(14)
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{1000, 50000, 500000} {
		e, err := NewConcrete(precision, Dense)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			e.Add(rng.Uint64())
		}

		got := e.Estimate()
		stderr := StandardError(precision)
		tolerance := 4 * stderr * float64(n)
		assert.InDelta(t, n, got, tolerance, "n=%d got=%d", n, got)
	}
}

func TestDenseEstimateIsCachedUntilNextAdd(t *testing.T) {
	e, err := NewConcrete(16, Dense)
	require.NoError(t, err)

	// any single add into a fresh, all-zero register array changes a
	// register, since every rank is at least 1.
	e.Add(0x1)

	first := e.Estimate()
	assert.GreaterOrEqual(t, e.cachedEstimate, 0.0)

	second := e.Estimate()
	assert.Equal(t, first, second)

	e.Add(0x2)
	assert.Equal(t, -1.0, e.cachedEstimate)
}
