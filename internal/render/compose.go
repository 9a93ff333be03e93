package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Tessellate places copies side by side horizontally, which shows whether
// the left and right edges of a map meet.
func Tessellate(img image.Image, copies int) *image.RGBA {
	if copies < 1 {
		copies = 1
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*copies, b.Dy()))
	for i := 0; i < copies; i++ {
		r := image.Rect(i*b.Dx(), 0, (i+1)*b.Dx(), b.Dy())
		draw.Draw(dst, r, img, b.Min, draw.Src)
	}
	return dst
}

// DrawGrid outlines every cell×cell block of img in c.
func DrawGrid(img *image.RGBA, cell int, c color.RGBA) {
	if cell <= 0 {
		return
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := (x-b.Min.X)%cell, (y-b.Min.Y)%cell
			if dx == 0 || dy == 0 || dx == cell-1 || dy == cell-1 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// GridColor is the outline colour used for tile boundaries.
var GridColor = white
