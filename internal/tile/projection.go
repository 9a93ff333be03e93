package tile

import "math"

// Projection places the equirectangular world on the noise domain: longitude
// -180..180 spans periods[0] lattice cells and latitude 90..-90 spans
// periods[1], so the periodic x axis wraps at the antimeridian.
type Projection struct {
	Periods  [2]float64
	TileSize int
}

// NewProjection builds a projection for square tiles of tileSize pixels.
// Zero periods fall back to one cell per 360 and 180 degrees.
func NewProjection(periods []int, tileSize int) Projection {
	p := Projection{Periods: [2]float64{1, 1}, TileSize: tileSize}
	for i := 0; i < len(periods) && i < 2; i++ {
		if periods[i] > 0 {
			p.Periods[i] = float64(periods[i])
		}
	}
	return p
}

// LonLat converts a geographic position to noise coordinates.
func (p Projection) LonLat(lon, lat float64) (float64, float64) {
	return (lon + 180) / 360 * p.Periods[0], (90 - lat) / 180 * p.Periods[1]
}

// Pixel returns the function mapping pixel (px, py) of tile c to noise
// coordinates. Pixel centers are sampled and rows follow the Mercator
// latitude of each pixel, so adjacent tiles line up.
func (p Projection) Pixel(c Coords) func(px, py int) (float64, float64) {
	n := float64(uint64(1) << c.Z)
	size := float64(p.TileSize)
	return func(px, py int) (float64, float64) {
		u := (float64(c.X) + (float64(px)+0.5)/size) / n
		v := (float64(c.Y) + (float64(py)+0.5)/size) / n
		lon := u*360 - 180
		_, lat := mercatorToLonLat(0, earthRadius*math.Pi*(1-2*v))
		return p.LonLat(lon, lat)
	}
}
