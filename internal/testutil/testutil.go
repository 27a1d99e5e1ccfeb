// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    testutil.RequireModelDir(t, "testdata/models/nemotron")
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// STREAMCAP_ORT_LIB env var, then common system library paths.
func RequireONNXRuntime(t testing.TB) {
	t.Helper()
	for _, env := range []string{"ORT_LIBRARY_PATH", "STREAMCAP_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			if _, err := os.Stat(p); err == nil {
				return // found
			}
			t.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return // found
		}
	}
	t.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or STREAMCAP_ORT_LIB")
}

// RequireModelDir skips the test unless dir contains an encoder.onnx,
// decoder_joint.onnx, and tokenizer.model — the three files asr.NewRecognizerFromDir
// requires. Real model weights are large and not committed to the repository,
// so most test runs exercise this path via a skip rather than a real load.
func RequireModelDir(t testing.TB, dir string) {
	t.Helper()

	for _, name := range []string{"encoder.onnx", "decoder_joint.onnx", "tokenizer.model"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			t.Skipf("model fixture not available at %q: %v", p, err)
		}
	}
}

// SampleWAVPath returns the path, relative to the repository root, of the
// 16 kHz mono fixture WAV cmd/streamcap/testdata/sample_16k_mono.wav, for
// use as stand-in audio input. That file is not in the repository, and
// cmd/streamcap/testdata/gen.go does not create it (it writes only
// silence_200ms.wav).
func SampleWAVPath() string {
	return filepath.Join("cmd", "streamcap", "testdata", "sample_16k_mono.wav")
}
