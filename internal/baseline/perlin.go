// Package baseline provides a non-wrapping reference noise source backed by
// github.com/aquilax/go-perlin. Rendering it next to a wrapping factory makes
// the seam that stitching removes visible.
package baseline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/aquilax/go-perlin"
)

// ErrUnsupportedDimension indicates a dimension go-perlin cannot evaluate.
var ErrUnsupportedDimension = errors.New("baseline: perlin supports 1 to 3 dimensions")

const (
	// alpha weights each octave (persistence), beta scales its frequency.
	alpha   = 2.0
	beta    = 2.0
	octaves = 3
)

// Perlin adapts go-perlin to noise.Source.
type Perlin struct {
	p   *perlin.Perlin
	dim int
}

// NewPerlin returns a seeded 1-3 dimensional Perlin source.
func NewPerlin(dim int, seed int64) (*Perlin, error) {
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrUnsupportedDimension, dim)
	}
	return &Perlin{
		p:   perlin.NewPerlin(alpha, beta, octaves, seed),
		dim: dim,
	}, nil
}

// Sample evaluates the classic permutation-table Perlin noise at point.
func (p *Perlin) Sample(point ...float64) (float64, error) {
	if len(point) != p.dim {
		return 0, &noise.DimensionMismatchError{Want: p.dim, Got: len(point)}
	}

	switch p.dim {
	case 1:
		return p.p.Noise1D(point[0]), nil
	case 2:
		return p.p.Noise2D(point[0], point[1]), nil
	default:
		return p.p.Noise3D(point[0], point[1], point[2]), nil
	}
}

// Dimension returns the number of axes.
func (p *Perlin) Dimension() int { return p.dim }

var _ noise.Source = (*Perlin)(nil)
