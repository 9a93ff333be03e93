package noise

// smoothstep eases t in [0,1] so the slope is zero at both ends.
func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}
