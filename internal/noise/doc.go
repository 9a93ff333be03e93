// Package noise generates deterministic, seamlessly tileable gradient noise.
//
// A Factory owns one GradientField per frequency level. At construction the
// boundary of each field is stitched: the x=0 and x=max planes share their
// gradients, every point on the axis-0 line shares one origin pole, and every
// point where a later axis sits at its period shares that axis' pole. The
// result wraps horizontally like an equirectangular world map, with the
// remaining edges collapsing to poles.
//
// Sampling locates the lattice cell around a point, takes the dot product of
// each corner gradient with the offset to the point and blends the corners
// with smoothstep weights. Extra octaves are independent fields at doubled
// frequency and periods whose contributions are halved per level; the sum is
// divided by the total weight and can be pushed away from zero ("unbias") for
// crisper thresholding into terrain bands.
//
// Errors:
//
//   - ErrDimensionMismatch: a point with the wrong number of components.
//   - ErrNonFinitePoint: a point with a NaN or infinite component.
//   - ErrInvalidDimension, ErrInvalidOctaves, ErrNegativePeriod,
//     ErrTooManyPeriods, ErrFieldTooLarge: rejected Config values.
package noise
