package render

import (
	"image"
	"image/color"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"
)

// Smooth applies a Gaussian blur to a heightmap. Larger sigma blurs more.
func Smooth(img *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		return img
	}
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// LandMask marks every pixel at or above seaLevel white and the rest black.
func LandMask(img *image.Gray, seaLevel uint8) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y >= seaLevel {
				mask.SetGray(x, y, color.Gray{Y: 255})
			} else {
				mask.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return mask
}

// SeaLevel converts a noise threshold in [-1,1] to the gray level Gray uses.
func SeaLevel(threshold float64) uint8 {
	v := (threshold + 1) / 2 * 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Upscale enlarges img by an integer factor with nearest-neighbour sampling,
// so every noise sample becomes a factor×factor block.
func Upscale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
