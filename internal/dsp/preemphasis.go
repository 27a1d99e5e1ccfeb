package dsp

import "math"

// DefaultPreEmphasis is the coefficient used by both the streaming and
// offline feature extractors.
const DefaultPreEmphasis = 0.97

// PreEmphasize applies a first-order pre-emphasis filter:
// y[0] = x[0], y[i] = x[i] - coeff*x[i-1] for i > 0.
// Any resulting non-finite sample (NaN or Inf) is replaced with 0, guarding
// the downstream FFT against propagating a single corrupt input sample
// across an entire frame.
func PreEmphasize(samples []float64, coeff float64) []float64 {
	if len(samples) == 0 {
		return nil
	}

	out := make([]float64, len(samples))
	out[0] = samples[0]

	for i := 1; i < len(samples); i++ {
		v := samples[i] - coeff*samples[i-1]
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out[i] = v
		}
	}

	if math.IsInf(out[0], 0) || math.IsNaN(out[0]) {
		out[0] = 0
	}

	return out
}
