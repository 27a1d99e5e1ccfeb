// Package dsp implements the signal-processing primitives shared by the
// streaming and offline feature extractors: FFT, windowing, pre-emphasis,
// and mel filterbank construction.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform of input in place using an
// iterative radix-2 Cooley-Tukey decimation-in-time algorithm. len(input)
// must be a power of two. Runs in O(n log n) rather than the O(n^2) of a
// naive DFT, which matters at the frame rates this package runs at.
func FFT(input []complex128) error {
	n := len(input)
	if n == 0 {
		return nil
	}

	if n&(n-1) != 0 {
		return fmt.Errorf("dsp: FFT length %d is not a power of two", n)
	}

	bitReverse(input)

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		angleStep := -2 * math.Pi / float64(size)

		for start := 0; start < n; start += size {
			for k := range half {
				w := cmplx.Rect(1, angleStep*float64(k))
				even := input[start+k]
				odd := input[start+k+half] * w

				input[start+k] = even + odd
				input[start+k+half] = even - odd
			}
		}
	}

	return nil
}

func bitReverse(input []complex128) {
	n := len(input)
	bits := 0
	for 1<<bits < n {
		bits++
	}

	for i := 0; i < n; i++ {
		j := reverseBits(i, bits)
		if j > i {
			input[i], input[j] = input[j], input[i]
		}
	}
}

func reverseBits(v, bits int) int {
	result := 0
	for range bits {
		result = (result << 1) | (v & 1)
		v >>= 1
	}

	return result
}

// PowerSpectrum computes |FFT(frame)|^2 for the first n/2+1 bins of a
// real-valued frame of length n (n a power of two), i.e. the one-sided
// spectrum used by mel filterbank application.
func PowerSpectrum(frame []float64) ([]float64, error) {
	n := len(frame)

	buf := make([]complex128, n)
	for i, v := range frame {
		buf[i] = complex(v, 0)
	}

	if err := FFT(buf); err != nil {
		return nil, err
	}

	bins := n/2 + 1
	out := make([]float64, bins)

	for i := range bins {
		out[i] = real(buf[i])*real(buf[i]) + imag(buf[i])*imag(buf[i])
	}

	return out, nil
}
