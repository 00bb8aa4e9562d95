// Package prng holds the process-wide pseudo-random generators that trainers
// draw from.
//
// There are two generators: a general-purpose one (scalar draws) and a
// numeric-array one (gonum vectors). Both start from a random state and
// become reproducible once seeded. They are safe for concurrent draws.
package prng

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// PCG stream selectors, so the two generators never share a sequence for the
// same seed.
const (
	generalStream uint64 = 0x9e3779b97f4a7c15
	arrayStream   uint64 = 0xbf58476d1ce4e5b9
)

var (
	general = &General{src: rand.NewPCG(rand.Uint64(), generalStream)}
	array   = &Array{src: rand.NewPCG(rand.Uint64(), arrayStream)}
)

func init() {
	general.r = rand.New(general.src)
	array.r = rand.New(array.src)
}

// Global returns the process-wide general-purpose generator.
func Global() *General { return general }

// GlobalArray returns the process-wide numeric-array generator.
func GlobalArray() *Array { return array }

// General is a general-purpose generator.
type General struct {
	mu  sync.Mutex
	src *rand.PCG
	r   *rand.Rand
}

func (g *General) Name() string { return "general" }

// MaxSeed is the largest accepted seed.
func (g *General) MaxSeed() uint64 { return math.MaxInt64 }

// Seed resets the generator to the sequence determined by seed.
func (g *General) Seed(seed uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.src.Seed(seed, generalStream)
}

func (g *General) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64()
}

func (g *General) NormFloat64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.NormFloat64()
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (g *General) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.IntN(n)
}

// Array draws whole arrays of values.
type Array struct {
	mu  sync.Mutex
	src *rand.PCG
	r   *rand.Rand
}

func (a *Array) Name() string { return "array" }

// MaxSeed is the largest accepted seed. Array seeds are 32-bit.
func (a *Array) MaxSeed() uint64 { return math.MaxUint32 }

// Seed resets the generator to the sequence determined by seed.
func (a *Array) Seed(seed uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.src.Seed(seed, arrayStream)
}

// UniformVec returns a vector of n draws from [lo, hi).
func (a *Array) UniformVec(n int, lo, hi float64) *mat.VecDense {
	a.mu.Lock()
	defer a.mu.Unlock()
	data := make([]float64, n)
	for i := range data {
		data[i] = lo + (hi-lo)*a.r.Float64()
	}
	return mat.NewVecDense(n, data)
}
