// Package wavio decodes WAV files into the 16 kHz mono float32 samples
// the streaming recognizer expects, rejecting anything else rather than
// silently resampling or downmixing.
package wavio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// Expected WAV format for recognizer input.
const (
	ExpectedSampleRate = 16000
	ExpectedChannels   = 1
	ExpectedBitDepth   = 16
)

// ErrFormatMismatch is returned when a decoded WAV does not match the
// format the recognizer requires.
var ErrFormatMismatch = errors.New("wavio: format mismatch")

// DecodeWAV decodes WAV bytes into float32 PCM samples in [-1, 1].
// It validates that the format is 16000 Hz, mono, 16-bit PCM — any other
// sample rate or channel count is rejected rather than resampled or
// downmixed, since the recognizer's mel front end assumes 16 kHz mono.
func DecodeWAV(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("wavio: empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)

	if !dec.IsValidFile() {
		return nil, errors.New("wavio: invalid WAV file")
	}

	if dec.SampleRate != ExpectedSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormatMismatch, dec.SampleRate, ExpectedSampleRate)
	}

	if dec.NumChans != ExpectedChannels {
		return nil, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, ExpectedChannels)
	}

	if dec.BitDepth != ExpectedBitDepth {
		return nil, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, ExpectedBitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: reading PCM data: %w", err)
	}

	floatBuf := buf.AsFloatBuffer()

	samples := make([]float32, len(floatBuf.Data))
	for i, v := range floatBuf.Data {
		samples[i] = float32(v)
	}

	return samples, nil
}
