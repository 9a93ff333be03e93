package noise

import "encoding/binary"

// Coord identifies a lattice vertex by its integer components.
type Coord []int

// key encodes the coordinate as a map key. Varints are prefix-free, so the
// encoding is unambiguous for a fixed dimension.
func (c Coord) key() string {
	buf := make([]byte, 0, len(c)*2)
	for _, v := range c {
		buf = binary.AppendVarint(buf, int64(v))
	}
	return string(buf)
}

func (c Coord) clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

// Gradient is the slope vector assigned to a lattice vertex.
type Gradient []float64

// Dot returns the dot product of g with the offset from corner to point.
func (g Gradient) Dot(point []float64, corner Coord) float64 {
	var sum float64
	for i := range g {
		sum += g[i] * (point[i] - float64(corner[i]))
	}
	return sum
}

// forEachCoord visits every coordinate of the inclusive box [lo, hi] in
// lexicographic order, the last axis varying fastest. The Coord passed to fn
// is reused between calls.
func forEachCoord(lo, hi Coord, fn func(Coord)) {
	for i := range lo {
		if hi[i] < lo[i] {
			return
		}
	}
	c := lo.clone()
	for {
		fn(c)
		i := len(c) - 1
		for ; i >= 0; i-- {
			if c[i] < hi[i] {
				c[i]++
				break
			}
			c[i] = lo[i]
		}
		if i < 0 {
			return
		}
	}
}
