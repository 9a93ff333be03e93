package noise

import "math"

// Normalizer rescales a raw octave sum into roughly [-1, 1] and optionally
// pushes it away from zero.
type Normalizer struct {
	weight float64
	passes int
	unbias bool
}

// NewNormalizer prepares the normalisation for octaves levels. The weight is
// the closed form of 1 + 1/2 + ... + 1/2^(octaves-1).
func NewNormalizer(octaves int, unbias bool) Normalizer {
	return Normalizer{
		weight: 2 - math.Pow(2, float64(1-octaves)),
		passes: (octaves + 1) / 2,
		unbias: unbias,
	}
}

// Normalize divides raw by the total octave weight. With unbias enabled the
// result is mapped to [0,1], eased with smoothstep once per pass and mapped
// back, which increases contrast around the midpoint.
func (n Normalizer) Normalize(raw float64) float64 {
	v := raw / n.weight
	if !n.unbias {
		return v
	}

	r := (v + 1) / 2
	for i := 0; i < n.passes; i++ {
		r = smoothstep(r)
	}
	return r*2 - 1
}
