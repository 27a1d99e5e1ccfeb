package wavio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// makeWAV builds a minimal valid WAV file from parameters for testing.
func makeWAV(sampleRate uint32, numChannels uint16, bitDepth uint16, numSamples int) []byte {
	blockAlign := numChannels * bitDepth / 8
	byteRate := sampleRate * uint32(blockAlign)
	dataSize := uint32(numSamples) * uint32(blockAlign)
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, numChannels)
	_ = binary.Write(buf, binary.LittleEndian, sampleRate)
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, bitDepth)

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)

	for range numSamples {
		_ = binary.Write(buf, binary.LittleEndian, int16(0))
	}

	return buf.Bytes()
}

func TestDecodeWAV_ValidFile(t *testing.T) {
	wav := makeWAV(16000, 1, 16, 100)

	samples, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(samples) != 100 {
		t.Errorf("got %d samples, want 100", len(samples))
	}
}

func TestDecodeWAV_RejectsWrongSampleRate(t *testing.T) {
	wav := makeWAV(24000, 1, 16, 10)

	_, err := DecodeWAV(wav)
	if err == nil {
		t.Fatal("expected error for wrong sample rate")
	}

	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestDecodeWAV_RejectsStereo(t *testing.T) {
	wav := makeWAV(16000, 2, 16, 10)

	_, err := DecodeWAV(wav)
	if err == nil {
		t.Fatal("expected error for stereo")
	}

	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestDecodeWAV_RejectsWrongBitDepth(t *testing.T) {
	wav := makeWAV(16000, 1, 8, 10)

	_, err := DecodeWAV(wav)
	if err == nil {
		t.Fatal("expected error for wrong bit depth")
	}

	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestDecodeWAV_RejectsInvalidData(t *testing.T) {
	if _, err := DecodeWAV([]byte("not a wav file")); err == nil {
		t.Fatal("expected error for invalid WAV")
	}
}

func TestDecodeWAV_RejectsEmptyInput(t *testing.T) {
	if _, err := DecodeWAV(nil); err == nil {
		t.Fatal("expected error for nil input")
	}
}

func TestDecodeWAV_SamplesWithinUnitRange(t *testing.T) {
	wav := makeWAV(16000, 1, 16, 16)

	samples, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, s := range samples {
		if s < -1.0 || s > 1.0 {
			t.Errorf("sample %d = %v, want within [-1, 1]", i, s)
		}
	}
}
