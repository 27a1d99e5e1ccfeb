package dsp

import "math"

// HannWindow returns a symmetric Hann window of length n:
// w[i] = 0.5 - 0.5*cos(2*pi*i/(n-1)).
func HannWindow(n int) []float64 {
	if n <= 0 {
		return nil
	}

	if n == 1 {
		return []float64{1}
	}

	w := make([]float64, n)
	denom := float64(n - 1)

	for i := range n {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/denom)
	}

	return w
}
