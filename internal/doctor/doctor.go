// Package doctor provides environment preflight checks for streamcap.
package doctor

import (
	"fmt"
	"io"
	"os"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// VocabInspectFunc loads a SentencePiece model and returns its piece count.
type VocabInspectFunc func(path string) (int, error)

// VocabParityFunc cross-checks the hand-rolled vocabulary decoder against
// the full reference SentencePiece tokenizer on a canary round trip,
// reporting agreement. It returns an error only when the check itself
// could not be run (e.g. the reference model failed to load); a completed
// check that disagrees returns (false, nil).
type VocabParityFunc func() (bool, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// ORTVersion returns the detected ONNX Runtime shared library version.
	ORTVersion VersionFunc
	// SkipORT skips the ONNX Runtime detection check.
	SkipORT bool
	// ONNXManifestPath is the path to the ONNX graph manifest (encoder + decoder_joint).
	ONNXManifestPath string
	// GraphFiles is the list of ONNX graph file paths named by the manifest.
	GraphFiles []string
	// VocabModelPath is the path to the SentencePiece tokenizer model.
	VocabModelPath string
	// InspectVocab parses VocabModelPath and returns its piece count.
	InspectVocab VocabInspectFunc
	// CheckVocabParity, if set, runs after InspectVocab succeeds and cross-
	// checks the hand-rolled decoder against the reference tokenizer.
	CheckVocabParity VocabParityFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- ONNX Runtime library ----------------------------------------------
	if cfg.SkipORT {
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	} else if cfg.ORTVersion == nil {
		res.fail("onnx runtime: no version check configured")
		fmt.Fprintf(w, "%s onnx runtime: not configured\n", FailMark)
	} else {
		ver, err := cfg.ORTVersion()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s\n", PassMark, ver)
		}
	}

	// ---- ONNX graph files ---------------------------------------------------
	if cfg.ONNXManifestPath != "" {
		if _, err := os.Stat(cfg.ONNXManifestPath); err != nil {
			res.fail(fmt.Sprintf("onnx manifest %q: %v", cfg.ONNXManifestPath, err))
			fmt.Fprintf(w, "%s onnx manifest: not found (%s)\n", FailMark, cfg.ONNXManifestPath)
		} else {
			fmt.Fprintf(w, "%s onnx manifest: %s\n", PassMark, cfg.ONNXManifestPath)
		}
	}

	for _, path := range cfg.GraphFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("onnx graph %q: %v", path, err))
			fmt.Fprintf(w, "%s onnx graph %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s onnx graph: %s\n", PassMark, path)
		}
	}

	// ---- vocabulary ---------------------------------------------------------
	if cfg.VocabModelPath != "" {
		if _, err := os.Stat(cfg.VocabModelPath); err != nil {
			res.fail(fmt.Sprintf("vocab model %q: %v", cfg.VocabModelPath, err))
			fmt.Fprintf(w, "%s vocab model %s: not found\n", FailMark, cfg.VocabModelPath)
		} else if cfg.InspectVocab != nil {
			count, err := cfg.InspectVocab(cfg.VocabModelPath)
			if err != nil {
				res.fail(fmt.Sprintf("vocab model %q: %v", cfg.VocabModelPath, err))
				fmt.Fprintf(w, "%s vocab model %s: %v\n", FailMark, cfg.VocabModelPath, err)
			} else if count <= 0 {
				res.fail(fmt.Sprintf("vocab model %q: no pieces parsed", cfg.VocabModelPath))
				fmt.Fprintf(w, "%s vocab model %s: 0 pieces\n", FailMark, cfg.VocabModelPath)
			} else {
				fmt.Fprintf(w, "%s vocab model: %s (%d pieces)\n", PassMark, cfg.VocabModelPath, count)

				if cfg.CheckVocabParity != nil {
					agrees, err := cfg.CheckVocabParity()
					switch {
					case err != nil:
						res.fail(fmt.Sprintf("vocab parity: %v", err))
						fmt.Fprintf(w, "%s vocab parity: %v\n", FailMark, err)
					case !agrees:
						res.fail("vocab parity: hand-rolled decoder disagrees with reference tokenizer")
						fmt.Fprintf(w, "%s vocab parity: disagrees with reference tokenizer\n", FailMark)
					default:
						fmt.Fprintf(w, "%s vocab parity: agrees with reference tokenizer\n", PassMark)
					}
				}
			}
		} else {
			fmt.Fprintf(w, "%s vocab model: %s\n", PassMark, cfg.VocabModelPath)
		}
	}

	return res
}
