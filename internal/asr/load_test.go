package asr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/streamcap/internal/onnx"
)

func TestNewRecognizerFromDir_MissingFilesFails(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRecognizerFromDir(dir, ProfileNemotron, onnx.ExecutionProviderConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for missing model files")
	}
}

func TestNewRecognizerFromDir_MissingVocabOnlyFails(t *testing.T) {
	dir := t.TempDir()

	// touch the two graph files but not the vocab, to isolate the error
	// to the vocab-missing branch.
	for _, name := range []string{encoderFilename, decoderJointFilename} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	_, err := NewRecognizerFromDir(dir, ProfileNemotron, onnx.ExecutionProviderConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for missing tokenizer.model")
	}
}
