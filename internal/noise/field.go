package noise

import "sync"

// GradientField maps lattice coordinates to gradients for one frequency
// level. The boundary box [0, period] is stitched at construction; any other
// coordinate is generated on first lookup and memoised.
type GradientField struct {
	gen     GradientGenerator
	grads   map[string]Gradient
	periods []int
	dim     int
	mu      sync.RWMutex
}

// NewGradientField builds a field and stitches its seams. periods may be
// shorter than dim; missing axes are non-periodic.
func NewGradientField(dim int, periods []int, gen GradientGenerator) (*GradientField, error) {
	if dim < 1 || dim > MaxDimension {
		return nil, ErrInvalidDimension
	}
	padded, err := padPeriods(dim, periods)
	if err != nil {
		return nil, err
	}

	f := &GradientField{
		dim:     dim,
		periods: padded,
		gen:     gen,
		grads:   make(map[string]Gradient),
	}
	f.buildSeams()
	return f, nil
}

// buildSeams pre-assigns every coordinate of the boundary box:
//
//	X  X  X  X  X
//	A           A
//	B           B
//	C           C
//	Y  Y  Y  Y  Y
//
// X is the origin pole, Y the pole of the second axis, and A, B, C are
// shared between the x=0 and x=max planes. Pole assignments read whatever
// the pole coordinate holds at that moment, so a pole coordinate rewritten
// by the x=0 pass propagates to the rest of its row.
func (f *GradientField) buildSeams() {
	origin := make(Coord, f.dim)
	originKey := origin.key()
	f.grads[originKey] = f.gen.Gradient(f.dim)

	poles := make([]string, f.dim)
	for k := 1; k < f.dim; k++ {
		c := make(Coord, f.dim)
		c[k] = f.periods[k]
		poles[k] = c.key()
		f.grads[poles[k]] = f.gen.Gradient(f.dim)
	}

	forEachCoord(origin, Coord(f.periods), func(c Coord) {
		key := c.key()
		switch {
		case onFirstAxis(c):
			f.grads[key] = f.grads[originKey]
		case c[0] == 0:
			g := f.gen.Gradient(f.dim)
			f.grads[key] = g
			mirror := c.clone()
			mirror[0] = f.periods[0]
			f.grads[mirror.key()] = g
		default:
			for k := 1; k < f.dim; k++ {
				if c[k] == f.periods[k] {
					f.grads[key] = f.grads[poles[k]]
					break
				}
			}
		}
		if _, ok := f.grads[key]; !ok {
			f.grads[key] = f.gen.Gradient(f.dim)
		}
	})
}

// onFirstAxis reports whether every component after the first is zero.
func onFirstAxis(c Coord) bool {
	for _, v := range c[1:] {
		if v != 0 {
			return false
		}
	}
	return true
}

// Lookup returns the gradient at c, generating and storing it on a miss.
// Repeated lookups of one coordinate always return the same vector.
func (f *GradientField) Lookup(c Coord) Gradient {
	key := c.key()

	f.mu.RLock()
	g, ok := f.grads[key]
	f.mu.RUnlock()
	if ok {
		return g
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.grads[key]; ok {
		return g
	}
	g = f.gen.Gradient(f.dim)
	f.grads[key] = g
	return g
}

// Populate resolves every coordinate of the inclusive box [lo, hi] in
// lexicographic order. After Populate, lookups inside the box never insert.
func (f *GradientField) Populate(lo, hi Coord) error {
	if len(lo) != f.dim {
		return &DimensionMismatchError{Want: f.dim, Got: len(lo)}
	}
	if len(hi) != f.dim {
		return &DimensionMismatchError{Want: f.dim, Got: len(hi)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	forEachCoord(lo, hi, func(c Coord) {
		key := c.key()
		if _, ok := f.grads[key]; !ok {
			f.grads[key] = f.gen.Gradient(f.dim)
		}
	})
	return nil
}

// Len returns the number of stored gradients.
func (f *GradientField) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.grads)
}

// Periods returns a copy of the field's per-axis periods.
func (f *GradientField) Periods() []int {
	out := make([]int, len(f.periods))
	copy(out, f.periods)
	return out
}
