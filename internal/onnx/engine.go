package onnx

import (
	"fmt"
	"log/slog"
)

// Engine loads the encoder and decoder-joint ONNX graphs named in a manifest
// and exposes them as GraphRunners. A single Engine's runners may be shared
// across many Recognizers, since session execution is safe for concurrent
// callers; only the per-Recognizer cache/state tensors are exclusive.
type Engine struct {
	runners map[string]GraphRunner
	sm      *SessionManager
}

// NewEngine loads the ONNX manifest and creates a Runner for each graph it
// names. Manifests for this module name exactly two graphs: "encoder" and
// "decoder_joint".
func NewEngine(manifestPath string, cfg RunnerConfig) (*Engine, error) {
	sm, err := NewSessionManager(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	runners := make(map[string]GraphRunner, len(sm.Sessions()))
	for _, sess := range sm.Sessions() {
		runner, err := NewRunner(sess, cfg)
		if err != nil {
			for _, r := range runners {
				r.Close()
			}

			return nil, fmt.Errorf("create runner %q: %w", sess.Name, err)
		}

		runners[sess.Name] = runner
		slog.Info("created ONNX runner", "graph", sess.Name)
	}

	return &Engine{runners: runners, sm: sm}, nil
}

// Runner returns the named graph runner as a concrete *Runner, if present.
func (e *Engine) Runner(name string) (*Runner, bool) {
	r, ok := e.runners[name]
	if !ok {
		return nil, false
	}

	concrete, ok := r.(*Runner)

	return concrete, ok
}

// GraphRunner returns the named graph runner through the GraphRunner
// interface, suitable for passing to asr.NewRecognizer.
func (e *Engine) GraphRunner(name string) (GraphRunner, bool) {
	r, ok := e.runners[name]
	return r, ok
}

// Close releases all ORT resources. Safe to call multiple times.
func (e *Engine) Close() {
	for _, r := range e.runners {
		r.Close()
	}
}
