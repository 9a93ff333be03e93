package noise

import (
	"math"
	"math/rand/v2"
	"sync"
)

// GradientGenerator draws fresh gradients. Every call for a given dimension
// consumes the same number of draws, so a seeded generator reproduces the
// same field when fields are built in the same order.
type GradientGenerator interface {
	Gradient(dim int) Gradient
}

// randomGenerator draws gradients from an owned PCG stream. One generator is
// shared by every field of a Factory; the mutex serialises lazy draws from
// fields sampled concurrently.
type randomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomGenerator returns a generator seeded with seed, or with
// non-reproducible state when seed is nil.
func NewRandomGenerator(seed *int64) GradientGenerator {
	var src *rand.PCG
	if seed != nil {
		src = rand.NewPCG(uint64(*seed), 0)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &randomGenerator{rng: rand.New(src)}
}

// Gradient returns a unit vector built from dim standard-normal draws. In one
// dimension it returns a single uniform draw in [-1, 1).
func (g *randomGenerator) Gradient(dim int) Gradient {
	g.mu.Lock()
	defer g.mu.Unlock()

	if dim == 1 {
		return Gradient{g.rng.Float64()*2 - 1}
	}

	v := make(Gradient, dim)
	var sum float64
	for i := range v {
		v[i] = g.rng.NormFloat64()
		sum += v[i] * v[i]
	}
	if sum == 0 {
		v[0] = 1
		return v
	}

	scale := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= scale
	}
	return v
}
