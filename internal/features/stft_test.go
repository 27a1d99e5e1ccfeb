package features

import (
	"testing"

	"github.com/example/streamcap/internal/dsp"
)

func TestCenteredSTFT_FrameCount(t *testing.T) {
	samples := make([]float64, 16000) // 1 second at 16kHz
	window := dsp.HannWindow(WinLength)

	frames, err := CenteredSTFT(samples, NFFT, WinLength, HopLength, window)
	if err != nil {
		t.Fatalf("CenteredSTFT: %v", err)
	}

	padded := len(samples) + NFFT
	want := 1 + (padded-WinLength)/HopLength

	if len(frames) != want {
		t.Errorf("frame count = %d, want %d", len(frames), want)
	}
}

func TestCenteredSTFT_BinCount(t *testing.T) {
	samples := make([]float64, 1600)
	window := dsp.HannWindow(WinLength)

	frames, err := CenteredSTFT(samples, NFFT, WinLength, HopLength, window)
	if err != nil {
		t.Fatalf("CenteredSTFT: %v", err)
	}

	for i, f := range frames {
		if len(f) != NFFT/2+1 {
			t.Fatalf("frame %d has %d bins, want %d", i, len(f), NFFT/2+1)
		}
	}
}

func TestCenteredSTFT_WindowLengthMismatch(t *testing.T) {
	samples := make([]float64, 1600)
	badWindow := make([]float64, WinLength+1)

	if _, err := CenteredSTFT(samples, NFFT, WinLength, HopLength, badWindow); err == nil {
		t.Fatal("expected error for mismatched window length")
	}
}

func TestCenteredSTFT_Silence(t *testing.T) {
	samples := make([]float64, 1600)
	window := dsp.HannWindow(WinLength)

	frames, err := CenteredSTFT(samples, NFFT, WinLength, HopLength, window)
	if err != nil {
		t.Fatalf("CenteredSTFT: %v", err)
	}

	for fi, frame := range frames {
		for bi, v := range frame {
			if v != 0 {
				t.Fatalf("frame %d bin %d = %v, want 0 for silence", fi, bi, v)
			}
		}
	}
}
