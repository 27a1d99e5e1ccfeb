package onnx

import (
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// ExecutionProviderConfig selects and configures the ONNX Runtime execution
// provider used by a Runner. An accelerated provider is available only in
// builds made with its corresponding build tag; CPU is always compiled in
// and is appended after any accelerated provider as a mandatory fallback.
type ExecutionProviderConfig struct {
	Provider     string
	IntraThreads int
	InterThreads int

	// Configure, if set, runs last against the constructed session options,
	// after threading, optimization level, and provider registration.
	Configure func(*ort.SessionOptions) error
}

const ProviderCPU = "cpu"

// providerAppenders holds one append function per execution provider that
// this build was compiled with. The cpu provider is always registered by
// execution_cpu.go; accelerated providers register themselves from their
// own build-tag-gated file.
var providerAppenders = map[string]func(*ort.SessionOptions) error{}

func registerProvider(name string, fn func(*ort.SessionOptions) error) {
	providerAppenders[name] = fn
}

// newSessionOptions builds ORT session options for cfg: graph optimization
// is fixed at the maximum level, thread counts are applied, the requested
// provider is appended (an error is returned if it is not compiled in), CPU is
// appended afterward as a mandatory fallback for non-CPU providers, and
// finally the caller's Configure callback runs.
func newSessionOptions(cfg ExecutionProviderConfig) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("new session options: %w", err)
	}

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelAll); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("set graph optimization level: %w", err)
	}

	intra := cfg.IntraThreads
	if intra <= 0 {
		intra = 1
	}

	if err := options.SetIntraOpNumThreads(intra); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}

	inter := cfg.InterThreads
	if inter <= 0 {
		inter = 1
	}

	if err := options.SetInterOpNumThreads(inter); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("set inter-op threads: %w", err)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderCPU
	}

	if provider != ProviderCPU {
		appender, ok := providerAppenders[provider]
		if !ok {
			return nil, fmt.Errorf("execution provider %q not compiled into this build", provider)
		}

		if err := appender(options); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("append provider %q: %w", provider, err)
		}
	}

	// CPU is always appended last: ORT tries providers in registration
	// order and falls through to the next on unsupported ops, so CPU must
	// remain available even when an accelerator handles most of the graph.
	if cpuAppend, ok := providerAppenders[ProviderCPU]; ok {
		if err := cpuAppend(options); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("append cpu provider: %w", err)
		}
	}

	if cfg.Configure != nil {
		if err := cfg.Configure(options); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("custom configure: %w", err)
		}
	}

	return options, nil
}
