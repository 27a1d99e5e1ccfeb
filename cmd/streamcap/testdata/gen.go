//go:build ignore

// gen.go generates the fixture WAV files in this directory.
// Run with: go run ./cmd/streamcap/testdata/gen.go
package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/example/streamcap/internal/wavio"
)

func main() {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Dir(file)

	// 200 ms of silence at 16000 Hz = 3200 samples.
	samples := make([]float32, 3200)
	data, err := wavio.EncodeWAV(samples)
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "silence_200ms.wav"), data, 0o644); err != nil {
		panic(err)
	}
}
