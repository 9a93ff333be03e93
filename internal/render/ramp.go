package render

import "image/color"

var (
	black     = color.RGBA{0, 0, 0, 255}
	grey      = color.RGBA{100, 100, 100, 255}
	white     = color.RGBA{255, 255, 255, 255}
	blue      = color.RGBA{0, 0, 255, 255}
	lightBlue = color.RGBA{0, 221, 255, 255}
	green     = color.RGBA{0, 220, 0, 255}
	darkGreen = color.RGBA{0, 125, 0, 255}
	yellow    = color.RGBA{200, 200, 0, 255}
)

// Band colours every value at or above Threshold that no higher band claimed.
type Band struct {
	Threshold float64
	Color     color.RGBA
}

// Ramp is a list of bands ordered by descending threshold.
type Ramp []Band

// DefaultRamp bands raw normalised noise into peaks, forest, beach and sea.
var DefaultRamp = Ramp{
	{0.8, black}, {0.5, grey},
	{0.3, darkGreen}, {0.25, green}, {0.15, darkGreen}, {0.08, green}, {0.05, yellow},
	{0.01, lightBlue}, {-1, blue},
}

// UnbiasedRamp suits unbiased noise, whose values crowd towards ±1.
var UnbiasedRamp = Ramp{
	{1, black}, {0.95, grey},
	{0.8, darkGreen}, {0.6, green}, {0.3, darkGreen}, {0.2, green}, {0.1, yellow},
	{0.05, lightBlue}, {-1, blue},
}

// RampFor picks the ramp matching the unbias setting.
func RampFor(unbias bool) Ramp {
	if unbias {
		return UnbiasedRamp
	}
	return DefaultRamp
}

// Color returns the colour of the first band whose threshold v reaches, or
// the lowest band's colour when v is below every threshold.
func (r Ramp) Color(v float64) color.RGBA {
	for _, b := range r {
		if v >= b.Threshold {
			return b.Color
		}
	}
	if len(r) == 0 {
		return black
	}
	return r[len(r)-1].Color
}
