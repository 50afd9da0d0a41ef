// Package random provides the seeded pseudo-random source used by every
// randomized step of training (shuffles, bootstrap samples, feature subsets,
// split thresholds, permutations).
//
// 同じシードからは常に同じ系列が得られるため、学習結果はビット単位で再現可能です。
// グローバルな乱数状態には一切依存しません。
package random

// 32-bit linear congruential generator constants (Numerical Recipes).
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// DefaultSeed is the seed used for shuffling, bootstrap bases and permutations.
const DefaultSeed uint32 = 42

// LCG is a 32-bit linear congruential generator. The zero value is a valid
// generator seeded with 0. LCG is not safe for concurrent use; give each
// goroutine its own value.
type LCG struct {
	state uint32
}

// NewLCG returns a generator seeded with seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Uint32 advances the state and returns it.
func (g *LCG) Uint32() uint32 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// Float64 returns a uniform value in [0, 1).
func (g *LCG) Float64() float64 {
	return float64(g.Uint32()) / 4294967296.0
}

// Intn returns a uniform index in [0, n). It panics if n <= 0.
func (g *LCG) Intn(n int) int {
	if n <= 0 {
		panic("random: invalid argument to Intn")
	}
	i := int(g.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Uniform returns a value in [lo, hi).
func (g *LCG) Uniform(lo, hi float64) float64 {
	return lo + g.Float64()*(hi-lo)
}

// Shuffle performs a Fisher–Yates shuffle of n elements using swap.
// i runs from n−1 down to 1 and j = ⌊u·(i+1)⌋.
func (g *LCG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		swap(i, j)
	}
}

// Perm returns a seeded permutation of [0, n).
func (g *LCG) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	g.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// DeriveSeed returns base + i*stride with uint32 wraparound.
func DeriveSeed(base uint32, i int, stride uint32) uint32 {
	return base + uint32(i)*stride
}
