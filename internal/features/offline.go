package features

import (
	"fmt"
	"math"

	"github.com/example/streamcap/internal/dsp"
)

// offlineLogZeroGuard is exactly 2^-24. It is close to, but not equal to,
// streamingLogZeroGuard (the decimal literal 5.9604645e-8), so the two
// paths can produce slightly different log values for near-zero energy.
// The two guards are kept as distinct values rather than merged into one,
// so the two paths stay independently editable.
var offlineLogZeroGuard = math.Exp2(-24)

// OfflineExtractor computes log-mel features for a complete, already-known
// utterance: the same centered STFT and Slaney mel projection as Extractor,
// followed by per-feature (per mel bin) mean/variance normalization across
// the whole utterance using the Bessel-corrected (N-1) sample variance.
type OfflineExtractor struct {
	window     []float64
	filterbank [][]float64
}

// NewOfflineExtractor builds an offline feature extractor for the fixed
// 16 kHz / 128-mel configuration used by every model profile.
func NewOfflineExtractor() *OfflineExtractor {
	return &OfflineExtractor{
		window:     dsp.HannWindow(WinLength),
		filterbank: dsp.MelFilterbank(SampleRate, NFFT, NMels),
	}
}

// Compute returns normalized log-mel features (length NMels per frame) for
// the full sample buffer.
func (e *OfflineExtractor) Compute(samples []float32) ([][]float32, error) {
	f64 := make([]float64, len(samples))
	for i, s := range samples {
		f64[i] = float64(s)
	}

	emphasized := dsp.PreEmphasize(f64, PreEmphasis)

	frames, err := CenteredSTFT(emphasized, NFFT, WinLength, HopLength, e.window)
	if err != nil {
		return nil, fmt.Errorf("features: offline stft: %w", err)
	}

	melFrames := ApplyMelFilterbank(frames, e.filterbank)

	logMel := make([][]float64, len(melFrames))
	for f, mel := range melFrames {
		row := make([]float64, len(mel))
		for m, v := range mel {
			row[m] = math.Log(v + offlineLogZeroGuard)
		}

		logMel[f] = row
	}

	normalized := normalizePerFeature(logMel)

	out := make([][]float32, len(normalized))
	for f, row := range normalized {
		out32 := make([]float32, len(row))
		for m, v := range row {
			out32[m] = float32(v)
		}

		out[f] = out32
	}

	return out, nil
}

// normalizePerFeature z-scores each mel bin (column) across all frames
// (rows), using the Bessel-corrected (N-1) sample standard deviation and a
// 1e-5 floor added to it before dividing.
func normalizePerFeature(frames [][]float64) [][]float64 {
	n := len(frames)
	if n == 0 {
		return frames
	}

	nMels := len(frames[0])

	means := make([]float64, nMels)
	for _, row := range frames {
		for m, v := range row {
			means[m] += v
		}
	}

	for m := range means {
		means[m] /= float64(n)
	}

	stds := make([]float64, nMels)
	if n > 1 {
		for _, row := range frames {
			for m, v := range row {
				d := v - means[m]
				stds[m] += d * d
			}
		}

		for m := range stds {
			stds[m] = math.Sqrt(stds[m] / float64(n-1))
		}
	}

	out := make([][]float64, n)
	for f, row := range frames {
		normRow := make([]float64, nMels)
		for m, v := range row {
			normRow[m] = (v - means[m]) / (stds[m] + 1e-5)
		}

		out[f] = normRow
	}

	return out
}
