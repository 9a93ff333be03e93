// Package render turns noise values into images: grayscale heightmaps,
// colour-banded terrain, land masks and tiled previews.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
)

// Field is the sampling surface the renderer consumes.
type Field interface {
	Sample(point ...float64) (float64, error)
}

// Projection maps a pixel to a point in the noise domain.
type Projection func(px, py int) (x, y float64)

// CellProjection spans one lattice cell with cell pixels, sampling pixel
// corners, so a map that is period*cell pixels wide covers exactly one tile.
func CellProjection(cell int) Projection {
	c := float64(cell)
	return func(px, py int) (float64, float64) {
		return float64(px) / c, float64(py) / c
	}
}

// Grid holds sampled noise values in row-major order.
type Grid struct {
	Values []float64
	W      int
	H      int
}

// At returns the value at pixel (x, y).
func (g *Grid) At(x, y int) float64 { return g.Values[y*g.W+x] }

// SampleGrid evaluates f for every pixel of a w×h image.
func SampleGrid(ctx context.Context, f Field, w, h int, project Projection) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", w, h)
	}

	g := &Grid{Values: make([]float64, w*h), W: w, H: h}
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			nx, ny := project(x, y)
			v, err := f.Sample(nx, ny)
			if err != nil {
				return nil, fmt.Errorf("failed to sample pixel %d,%d: %w", x, y, err)
			}
			g.Values[y*w+x] = v
		}
	}
	return g, nil
}

// Gray maps [-1,1] to [0,255].
func (g *Grid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.W, g.H))
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			normalized := (g.At(x, y) + 1.0) / 2.0
			img.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, normalized*255)))})
		}
	}
	return img
}

// Terrain colours every pixel with the ramp band it falls into.
func (g *Grid) Terrain(r Ramp) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.W, g.H))
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			img.SetRGBA(x, y, r.Color(g.At(x, y)))
		}
	}
	return img
}

// SeamRatio compares the jump across the horizontal wrap (last column back
// to the first) with the mean jump between neighbouring interior columns.
// A seamless map scores close to 1; a visible seam scores well above it.
func (g *Grid) SeamRatio() float64 {
	if g.W < 2 {
		return 0
	}

	var seam, interior float64
	for y := 0; y < g.H; y++ {
		seam += math.Abs(g.At(0, y) - g.At(g.W-1, y))
		for x := 1; x < g.W; x++ {
			interior += math.Abs(g.At(x, y) - g.At(x-1, y))
		}
	}
	seam /= float64(g.H)
	interior /= float64(g.H * (g.W - 1))
	if interior == 0 {
		return 0
	}
	return seam / interior
}
