package asr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/streamcap/internal/onnx"
	"github.com/example/streamcap/internal/vocab"
)

const (
	encoderFilename      = "encoder.onnx"
	decoderJointFilename = "decoder_joint.onnx"
	vocabFilename        = "tokenizer.model"
)

// NewRecognizerFromDir builds a Recognizer by loading encoder.onnx,
// decoder_joint.onnx, and tokenizer.model from dir. The returned
// Recognizer exclusively owns the ONNX graph sessions it creates and
// releases them on Close.
func NewRecognizerFromDir(dir string, profile Profile, execCfg onnx.ExecutionProviderConfig, chunkSize *int) (*Recognizer, error) {
	encoderPath := filepath.Join(dir, encoderFilename)
	decoderPath := filepath.Join(dir, decoderJointFilename)
	vocabPath := filepath.Join(dir, vocabFilename)

	for _, p := range []string{encoderPath, decoderPath, vocabPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: missing model file %q: %v", ErrConfiguration, p, err)
		}
	}

	vocabBytes, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read tokenizer model: %v", ErrConfiguration, err)
	}

	return newRecognizerFromPaths(encoderPath, decoderPath, vocabBytes, profile, execCfg, chunkSize)
}

// NewRecognizerFromBytes builds a Recognizer from in-memory model bytes,
// for callers without a real filesystem layout (e.g. embedded assets).
// ORT only loads graphs from a file path, so the encoder/decoder bytes are
// staged to temporary files for the duration of session construction and
// removed immediately afterward.
func NewRecognizerFromBytes(encoderBytes, decoderBytes, vocabBytes []byte, profile Profile, execCfg onnx.ExecutionProviderConfig, chunkSize *int) (*Recognizer, error) {
	encoderPath, err := stageTempModel("streamcap-encoder-*.onnx", encoderBytes)
	if err != nil {
		return nil, err
	}
	defer os.Remove(encoderPath)

	decoderPath, err := stageTempModel("streamcap-decoder-*.onnx", decoderBytes)
	if err != nil {
		return nil, err
	}
	defer os.Remove(decoderPath)

	return newRecognizerFromPaths(encoderPath, decoderPath, vocabBytes, profile, execCfg, chunkSize)
}

func stageTempModel(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("%w: create temp model file: %v", ErrConfiguration, err)
	}

	path := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)

		return "", fmt.Errorf("%w: write temp model file: %v", ErrConfiguration, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: close temp model file: %v", ErrConfiguration, err)
	}

	return path, nil
}

func newRecognizerFromPaths(encoderPath, decoderPath string, vocabBytes []byte, profile Profile, execCfg onnx.ExecutionProviderConfig, chunkSize *int) (*Recognizer, error) {
	vocabulary, err := vocab.ParseModel(vocabBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenizer, err)
	}

	if profile.Name == ProfileEOU.Name {
		profile = NewEOUProfile(vocabulary.Size())
	}

	runnerCfg := onnx.RunnerConfig{Execution: execCfg}

	encoderRunner, err := onnx.NewRunner(onnx.Session{Name: "encoder", Path: encoderPath}, runnerCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: load encoder graph: %v", ErrModel, err)
	}

	decoderRunner, err := onnx.NewRunner(onnx.Session{Name: "decoder_joint", Path: decoderPath}, runnerCfg)
	if err != nil {
		encoderRunner.Close()
		return nil, fmt.Errorf("%w: load decoder_joint graph: %v", ErrModel, err)
	}

	r, err := NewRecognizer(profile, encoderRunner, decoderRunner, vocabulary, chunkSize)
	if err != nil {
		encoderRunner.Close()
		decoderRunner.Close()

		return nil, err
	}

	r.closer = func() {
		encoderRunner.Close()
		decoderRunner.Close()
	}

	return r, nil
}
