package filter

import (
	"fmt"
	"math"
)

// GaussianKernel produces a normalized size×size kernel for the given
// sigma. Entry (ky, kx) at offset (dx, dy) from the center holds
// exp(-(dx²+dy²)/(2σ²)) divided by the sum of all entries, so the
// whole kernel sums to 1. Size must be odd and positive.
func GaussianKernel(size int, sigma float64) ([][]float64, error) {
	if size <= 0 || size%2 == 0 {
		return nil, fmt.Errorf("kernel size must be an odd positive integer, got %d", size)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("sigma must be positive, got %g", sigma)
	}

	center := size / 2
	kernel := make([][]float64, size)
	var sum float64

	for ky := 0; ky < size; ky++ {
		kernel[ky] = make([]float64, size)
		for kx := 0; kx < size; kx++ {
			dx := float64(kx - center)
			dy := float64(ky - center)
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			kernel[ky][kx] = v
			sum += v
		}
	}

	for ky := 0; ky < size; ky++ {
		for kx := 0; kx < size; kx++ {
			kernel[ky][kx] /= sum
		}
	}

	return kernel, nil
}

// sharpenKernel is the fixed 3×3 sharpen convolution used by the heavy
// pipeline. It is applied with edge-clamp boundary, not mirror.
var sharpenKernel = [][]float64{
	{-1, -1, -1},
	{-1, 9, -1},
	{-1, -1, -1},
}
