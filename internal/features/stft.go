// Package features implements the two log-mel feature extraction paths used
// by the recognizer: a streaming path that never normalizes (so that a
// frame computed incrementally is bit-identical to the same frame computed
// over a longer buffer) and an offline path that additionally applies
// per-feature normalization over the whole utterance.
package features

import (
	"fmt"

	"github.com/example/streamcap/internal/dsp"
)

// CenteredSTFT computes the short-time power spectrum of samples using a
// centered framing convention: the signal is zero-padded by nFFT/2 samples
// on each side before framing, so frame i takes winLength samples starting
// at sample i*hopLength - nFFT/2 of the original (unpadded) signal; the
// frame is centered on sample i*hopLength only when winLength == nFFT.
// window must have length winLength;
// each extracted frame is windowed and then zero-padded on the right out to
// nFFT before the FFT.
func CenteredSTFT(samples []float64, nFFT, winLength, hopLength int, window []float64) ([][]float64, error) {
	if len(window) != winLength {
		return nil, fmt.Errorf("features: window length %d != winLength %d", len(window), winLength)
	}

	pad := nFFT / 2

	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	if len(padded) < winLength {
		return [][]float64{}, nil
	}

	numFrames := 1 + (len(padded)-winLength)/hopLength

	frames := make([][]float64, numFrames)
	scratch := make([]float64, nFFT)

	for f := range numFrames {
		start := f * hopLength

		for i := range scratch {
			scratch[i] = 0
		}

		for i := range winLength {
			scratch[i] = padded[start+i] * window[i]
		}

		power, err := dsp.PowerSpectrum(scratch)
		if err != nil {
			return nil, fmt.Errorf("features: frame %d: %w", f, err)
		}

		frames[f] = power
	}

	return frames, nil
}
