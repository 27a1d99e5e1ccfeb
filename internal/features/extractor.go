package features

import (
	"fmt"
	"math"

	"github.com/example/streamcap/internal/dsp"
)

const (
	SampleRate  = 16000
	NFFT        = 512
	WinLength   = 400
	HopLength   = 160
	NMels       = 128
	PreEmphasis = dsp.DefaultPreEmphasis
)

// streamingLogZeroGuard is the floor added before taking the log of the mel
// energy in the streaming path. This is deliberately spelled out as a
// decimal literal (rather than derived from 2^-24, as the offline path
// does) to keep the streaming and offline code paths visibly independent:
// they must never be unified into a single shared constant or function,
// since their surrounding normalization differs.
const streamingLogZeroGuard = 5.9604645e-8

// Extractor computes streaming log-mel features: centered STFT, Slaney mel
// projection, and a log-zero guard, with no normalization. A frame computed
// from a short buffer must be bit-identical to the same frame recomputed
// from a longer buffer that contains it, since the recognizer recomputes
// features over its full growing audio buffer on every chunk.
type Extractor struct {
	window     []float64
	filterbank [][]float64
}

// NewExtractor builds a streaming feature extractor for the fixed 16 kHz /
// 128-mel configuration used by every model profile.
func NewExtractor() *Extractor {
	return &Extractor{
		window:     dsp.HannWindow(WinLength),
		filterbank: dsp.MelFilterbank(SampleRate, NFFT, NMels),
	}
}

// Compute returns one log-mel feature vector (length NMels) per STFT frame
// for the given samples.
func (e *Extractor) Compute(samples []float32) ([][]float32, error) {
	f64 := make([]float64, len(samples))
	for i, s := range samples {
		f64[i] = float64(s)
	}

	emphasized := dsp.PreEmphasize(f64, PreEmphasis)

	frames, err := CenteredSTFT(emphasized, NFFT, WinLength, HopLength, e.window)
	if err != nil {
		return nil, fmt.Errorf("features: stft: %w", err)
	}

	melFrames := ApplyMelFilterbank(frames, e.filterbank)

	out := make([][]float32, len(melFrames))
	for f, mel := range melFrames {
		row := make([]float32, len(mel))
		for m, v := range mel {
			if v < 0 {
				v = 0
			}

			row[m] = float32(math.Log(v + streamingLogZeroGuard))
		}

		out[f] = row
	}

	return out, nil
}
