package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCGSequence(t *testing.T) {
	g := NewLCG(42)
	// 42*1664525 + 1013904223 = 1083814273
	assert.Equal(t, uint32(1083814273), g.Uint32())

	// wraps modulo 2^32
	seed := uint32(0xFFFFFFFF)
	w := NewLCG(seed)
	assert.Equal(t, seed*lcgMultiplier+lcgIncrement, w.Uint32())
}

func TestLCGDeterministic(t *testing.T) {
	a, b := NewLCG(7), NewLCG(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
	assert.NotEqual(t, NewLCG(7).Float64(), NewLCG(8).Float64())
}

func TestLCGRanges(t *testing.T) {
	g := NewLCG(DefaultSeed)
	for i := 0; i < 10000; i++ {
		u := g.Float64()
		require.True(t, u >= 0 && u < 1, "u=%v", u)

		k := g.Intn(7)
		require.True(t, k >= 0 && k < 7, "k=%d", k)

		v := g.Uniform(-2, 3)
		require.True(t, v >= -2 && v < 3, "v=%v", v)
	}
	assert.Panics(t, func() { g.Intn(0) })
}

func TestPermIsPermutation(t *testing.T) {
	p := NewLCG(DefaultSeed).Perm(50)
	require.Len(t, p, 50)
	seen := make(map[int]bool)
	for _, v := range p {
		seen[v] = true
	}
	assert.Len(t, seen, 50)
	assert.Equal(t, p, NewLCG(DefaultSeed).Perm(50))
}

func TestShuffleSmall(t *testing.T) {
	calls := 0
	NewLCG(1).Shuffle(1, func(i, j int) { calls++ })
	assert.Zero(t, calls)
	NewLCG(1).Shuffle(0, func(i, j int) { calls++ })
	assert.Zero(t, calls)
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, uint32(42), DeriveSeed(42, 0, 7919))
	assert.Equal(t, uint32(42+3*7919), DeriveSeed(42, 3, 7919))
	// wraparound
	base, i, stride := uint32(42), uint32(1000), uint32(1234567)
	assert.Equal(t, base+i*stride, DeriveSeed(42, 1000, 1234567))
}
