package logic

import "math"

// GaussianSmooth convolves xs with a normalized Gaussian kernel of width
// sigma, truncated at 4 sigma, reflecting the sequence at its boundaries.
// sigma <= 0 returns an unsmoothed copy.
func GaussianSmooth(xs []float64, sigma float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	if sigma <= 0 || len(xs) == 0 {
		return out
	}

	radius := int(4*sigma + 0.5)
	if radius < 1 {
		return out
	}

	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	for i := range xs {
		var acc float64
		for j := -radius; j <= radius; j++ {
			acc += kernel[j+radius] * xs[reflectIndex(i+j, len(xs))]
		}
		out[i] = acc
	}
	return out
}

// reflectIndex maps an out-of-range index back into [0, n) by mirroring at
// the edges: (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
