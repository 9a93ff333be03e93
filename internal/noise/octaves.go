package noise

// octave is one extra frequency level: an independent field sampled at
// factor times the base frequency and weighted by 1/factor.
type octave struct {
	field   *GradientField
	sampler *Sampler
	level   int
	factor  float64
}

// OctaveStack holds the pre-built octaves beyond the base level.
type OctaveStack struct {
	octaves []octave
	dim     int
}

// newOctaveStack builds count-1 child levels in increasing order. Level i
// scales the base periods by 2^(i+1). All levels draw from gen, so the build
// order is part of what a seed reproduces.
func newOctaveStack(dim int, periods []int, count int, gen GradientGenerator) (*OctaveStack, error) {
	s := &OctaveStack{dim: dim}
	for level := 0; level < count-1; level++ {
		mult := 1 << (level + 1)
		scaled := make([]int, len(periods))
		for i, p := range periods {
			scaled[i] = p * mult
		}

		field, err := NewGradientField(dim, scaled, gen)
		if err != nil {
			return nil, err
		}
		s.octaves = append(s.octaves, octave{
			field:   field,
			sampler: NewSampler(dim, field),
			level:   level,
			factor:  float64(mult),
		})
	}
	return s, nil
}

// Combine adds the weighted contribution of every octave to base.
func (s *OctaveStack) Combine(point []float64, base float64) (float64, error) {
	if len(point) != s.dim {
		return 0, &DimensionMismatchError{Want: s.dim, Got: len(point)}
	}

	scaled := make([]float64, len(point))
	for _, o := range s.octaves {
		for i, p := range point {
			scaled[i] = p * o.factor
		}
		v, err := o.sampler.Sample(scaled)
		if err != nil {
			return 0, err
		}
		base += v / o.factor
	}
	return base, nil
}

// Len returns the number of child octaves.
func (s *OctaveStack) Len() int { return len(s.octaves) }

// gradients returns the number of stored gradients across all octaves.
func (s *OctaveStack) gradients() int {
	n := 0
	for _, o := range s.octaves {
		n += o.field.Len()
	}
	return n
}
