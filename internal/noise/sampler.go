package noise

import (
	"fmt"
	"math"
)

// Lattice resolves the gradient at a lattice vertex. Implementations must
// not retain c.
type Lattice interface {
	Lookup(c Coord) Gradient
}

// Sampler evaluates single-octave gradient noise over a Lattice.
type Sampler struct {
	lattice Lattice
	dim     int
	scale   float64
}

// NewSampler returns a sampler for dim-dimensional points. Raw values are
// scaled by 2/sqrt(dim), which maps the largest corner contribution
// (sqrt(dim)/2) to one.
func NewSampler(dim int, lattice Lattice) *Sampler {
	return &Sampler{
		lattice: lattice,
		dim:     dim,
		scale:   2 / math.Sqrt(float64(dim)),
	}
}

// Sample returns the noise value at point without any wrapping.
func (s *Sampler) Sample(point []float64) (float64, error) {
	if len(point) != s.dim {
		return 0, &DimensionMismatchError{Want: s.dim, Got: len(point)}
	}

	if err := checkFinite(point); err != nil {
		return 0, err
	}

	lo := make(Coord, s.dim)
	frac := make([]float64, s.dim)
	for i, p := range point {
		fl := math.Floor(p)
		lo[i] = int(fl)
		frac[i] = p - fl
	}

	// Corner idx takes the upper bound on axis i when bit (dim-1-i) is set,
	// so adjacent pairs differ only in the last axis.
	dots := make([]float64, 1<<s.dim)
	corner := make(Coord, s.dim)
	for idx := range dots {
		for i := range corner {
			corner[i] = lo[i] + (idx>>(s.dim-1-i))&1
		}
		dots[idx] = s.lattice.Lookup(corner).Dot(point, corner)
	}

	for axis := s.dim - 1; axis >= 0; axis-- {
		t := smoothstep(frac[axis])
		half := len(dots) / 2
		for j := 0; j < half; j++ {
			dots[j] = lerp(t, dots[2*j], dots[2*j+1])
		}
		dots = dots[:half]
	}

	return dots[0] * s.scale, nil
}

// checkFinite rejects NaN and infinite components, which have no lattice cell.
func checkFinite(point []float64) error {
	for i, p := range point {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFinitePoint, i, p)
		}
	}
	return nil
}
