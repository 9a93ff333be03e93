package noise

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a sampled point has the wrong number of components.
	ErrDimensionMismatch = errors.New("noise: point dimension does not match field dimension")
	// ErrInvalidDimension indicates a dimension count below one.
	ErrInvalidDimension = errors.New("noise: dimension must be at least 1")
	// ErrInvalidOctaves indicates an octave count below one.
	ErrInvalidOctaves = errors.New("noise: octave count must be at least 1")
	// ErrNegativePeriod indicates a tile period below zero.
	ErrNegativePeriod = errors.New("noise: tile periods must be non-negative")
	// ErrTooManyPeriods indicates more tile periods than dimensions.
	ErrTooManyPeriods = errors.New("noise: more tile periods than dimensions")
	// ErrFieldTooLarge indicates the stitched boundary boxes of all octaves
	// would hold more than MaxSeamGradients gradients.
	ErrFieldTooLarge = errors.New("noise: periods and octaves exceed the seam gradient limit")
	// ErrNonFinitePoint indicates a sampled point with a NaN or infinite component.
	ErrNonFinitePoint = errors.New("noise: point components must be finite")
)

// DimensionMismatchError reports the expected and received point arity.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("noise: expected %d values, got %d", e.Want, e.Got)
}

// Is lets errors.Is match ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
