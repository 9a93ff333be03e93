package noise

import (
	"log/slog"
	"math"
)

// Source is anything that maps a point to a noise value.
type Source interface {
	Sample(point ...float64) (float64, error)
	Dimension() int
}

// Option customises a Factory.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	generator GradientGenerator
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGenerator replaces the seeded gradient source; Config.Seed is ignored.
func WithGenerator(gen GradientGenerator) Option {
	return func(o *options) { o.generator = gen }
}

// Factory is the top-level wrapping noise generator. It is immutable after
// New except for lazily generated gradients outside the stitched tile, and
// safe for concurrent use.
type Factory struct {
	field   *GradientField
	sampler *Sampler
	stack   *OctaveStack
	logger  *slog.Logger
	periods []int
	norm    Normalizer
	dim     int
	octaves int
	unbias  bool
}

// New validates cfg and builds every octave field. Child octaves are built
// before the base field; with a seed this order fixes the resulting noise.
func New(cfg Config, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	periods, err := padPeriods(cfg.Dimension, cfg.Periods)
	if err != nil {
		return nil, err
	}

	gen := o.generator
	if gen == nil {
		gen = NewRandomGenerator(cfg.Seed)
	}

	stack, err := newOctaveStack(cfg.Dimension, periods, cfg.Octaves, gen)
	if err != nil {
		return nil, err
	}
	field, err := NewGradientField(cfg.Dimension, periods, gen)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		field:   field,
		sampler: NewSampler(cfg.Dimension, field),
		stack:   stack,
		logger:  o.logger,
		periods: periods,
		norm:    NewNormalizer(cfg.Octaves, cfg.Unbias),
		dim:     cfg.Dimension,
		octaves: cfg.Octaves,
		unbias:  cfg.Unbias,
	}

	f.log().Debug("Built noise factory",
		"dimension", f.dim,
		"octaves", f.octaves,
		"periods", periods,
		"unbias", f.unbias,
		"gradients", field.Len()+stack.gradients(),
	)
	return f, nil
}

// Sample returns the normalised fractal noise value at point. Periodic axes
// wrap, so point and point shifted by a whole period give the same value.
func (f *Factory) Sample(point ...float64) (float64, error) {
	if len(point) != f.dim {
		return 0, &DimensionMismatchError{Want: f.dim, Got: len(point)}
	}
	if err := checkFinite(point); err != nil {
		return 0, err
	}

	bound := make([]float64, len(point))
	for i, p := range point {
		bound[i] = wrap(p, f.periods[i])
	}

	v, err := f.sampler.Sample(bound)
	if err != nil {
		return 0, err
	}
	v, err = f.stack.Combine(bound, v)
	if err != nil {
		return 0, err
	}
	return f.norm.Normalize(v), nil
}

// wrap maps x into [0, period) with floored modulo. A zero period leaves x
// untouched.
func wrap(x float64, period int) float64 {
	if period == 0 {
		return x
	}
	p := float64(period)
	x = math.Mod(x, p)
	if x < 0 {
		x += p
	}
	if x >= p {
		x -= p
	}
	return x
}

// Warm pre-populates every lattice point that sampling inside the box
// [lo, hi] can touch, in the base field and in every octave. Child octaves
// are warmed first, in level order, mirroring construction.
func (f *Factory) Warm(lo, hi []float64) error {
	if len(lo) != f.dim {
		return &DimensionMismatchError{Want: f.dim, Got: len(lo)}
	}
	if len(hi) != f.dim {
		return &DimensionMismatchError{Want: f.dim, Got: len(hi)}
	}
	if err := checkFinite(lo); err != nil {
		return err
	}
	if err := checkFinite(hi); err != nil {
		return err
	}

	for _, o := range f.stack.octaves {
		clo, chi := f.latticeBox(lo, hi, o.factor)
		if err := o.field.Populate(clo, chi); err != nil {
			return err
		}
	}
	blo, bhi := f.latticeBox(lo, hi, 1)
	return f.field.Populate(blo, bhi)
}

// latticeBox returns the lattice corners reachable from [lo, hi] scaled by
// factor. Periodic axes cover their whole scaled period.
func (f *Factory) latticeBox(lo, hi []float64, factor float64) (Coord, Coord) {
	clo := make(Coord, f.dim)
	chi := make(Coord, f.dim)
	for i := range clo {
		if p := f.periods[i]; p > 0 {
			clo[i] = 0
			chi[i] = int(float64(p) * factor)
			continue
		}
		a, b := lo[i], hi[i]
		if a > b {
			a, b = b, a
		}
		clo[i] = int(math.Floor(a * factor))
		chi[i] = int(math.Floor(b*factor)) + 1
	}
	return clo, chi
}

// Dimension returns the number of axes.
func (f *Factory) Dimension() int { return f.dim }

// Octaves returns the configured octave count.
func (f *Factory) Octaves() int { return f.octaves }

// Unbias reports whether the contrast curve is applied.
func (f *Factory) Unbias() bool { return f.unbias }

// Periods returns a copy of the per-axis tile periods, padded to Dimension.
func (f *Factory) Periods() []int {
	out := make([]int, len(f.periods))
	copy(out, f.periods)
	return out
}

// Gradients returns the number of gradients stored across all octaves.
func (f *Factory) Gradients() int {
	return f.field.Len() + f.stack.gradients()
}

func (f *Factory) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}
