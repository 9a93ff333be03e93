package noise

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxDimension bounds Config.Dimension. Each sample visits 2^Dimension
	// lattice corners.
	MaxDimension = 16
	// MaxOctaves bounds Config.Octaves.
	MaxOctaves = 30
	// MaxSeamGradients bounds the gradients stitched at construction, summed
	// over all octaves. Octave i stitches the box prod(period*2^i + 1), so
	// each extra octave multiplies the cost by about 2^Dimension.
	MaxSeamGradients = 1 << 22
)

// Config describes one noise factory.
type Config struct {
	// Seed makes the field reproducible; nil draws a fresh seed.
	Seed *int64
	// Periods holds the tile period per axis; 0 leaves an axis non-periodic.
	// Missing trailing axes are non-periodic.
	Periods   []int
	Dimension int
	// Octaves counts frequency levels. With periodic axes the construction
	// cost grows by about 2^Dimension per octave; see MaxSeamGradients.
	Octaves int
	Unbias    bool
}

// DefaultConfig returns a two-dimensional, single-octave, unseeded config.
func DefaultConfig() Config {
	return Config{Dimension: 2, Octaves: 1}
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if c.Dimension < 1 || c.Dimension > MaxDimension {
		return fmt.Errorf("%w: got %d, want 1-%d", ErrInvalidDimension, c.Dimension, MaxDimension)
	}
	if c.Octaves < 1 || c.Octaves > MaxOctaves {
		return fmt.Errorf("%w: got %d, want 1-%d", ErrInvalidOctaves, c.Octaves, MaxOctaves)
	}
	periods, err := padPeriods(c.Dimension, c.Periods)
	if err != nil {
		return err
	}
	if n := seamGradients(periods, c.Octaves); n > MaxSeamGradients {
		return fmt.Errorf("%w: %.0f gradients, limit %d", ErrFieldTooLarge, n, MaxSeamGradients)
	}
	return nil
}

// seamGradients estimates how many coordinates buildSeams visits across all
// octaves. It uses floats so huge configs cannot overflow.
func seamGradients(periods []int, octaves int) float64 {
	total := 0.0
	for level := 0; level < octaves; level++ {
		box := 1.0
		for _, p := range periods {
			box *= float64(p)*math.Exp2(float64(level)) + 1
		}
		total += box
	}
	return total
}

// padPeriods validates periods and extends them with zeros to dim entries.
func padPeriods(dim int, periods []int) ([]int, error) {
	if len(periods) > dim {
		return nil, fmt.Errorf("%w: %d periods for %d dimensions", ErrTooManyPeriods, len(periods), dim)
	}
	out := make([]int, dim)
	for i, p := range periods {
		if p < 0 {
			return nil, fmt.Errorf("%w: axis %d has period %d", ErrNegativePeriod, i, p)
		}
		out[i] = p
	}
	return out, nil
}

// SeedFromString turns a user-supplied seed into an int64. Integer strings
// are used as-is; anything else is hashed with FNV-1a.
func SeedFromString(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
