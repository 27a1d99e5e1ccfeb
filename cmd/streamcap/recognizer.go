package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/streamcap/internal/asr"
	"github.com/example/streamcap/internal/config"
	"github.com/example/streamcap/internal/onnx"
	"github.com/example/streamcap/internal/vocab"
)

// engineResources bundles everything built once per process invocation and
// shared read-only across every Recognizer the command constructs: the two
// ONNX graph sessions and the parsed vocabulary.
type engineResources struct {
	engine  *onnx.Engine
	profile asr.Profile
	vocab   *vocab.Vocabulary
}

func loadEngineResources(cfg config.Config) (*engineResources, error) {
	vocabBytes, err := os.ReadFile(cfg.Paths.VocabModel)
	if err != nil {
		return nil, fmt.Errorf("read vocab model %q: %w", cfg.Paths.VocabModel, err)
	}

	v, err := vocab.ParseModel(vocabBytes)
	if err != nil {
		return nil, fmt.Errorf("parse vocab model: %w", err)
	}

	profile, err := resolveProfile(cfg.ASR.Profile, v.Size())
	if err != nil {
		return nil, err
	}

	runtimeInfo, err := onnx.Bootstrap(cfg.Runtime)
	if err != nil {
		return nil, fmt.Errorf("bootstrap ONNX runtime: %w", err)
	}

	libraryPath := cfg.Runtime.ORTLibraryPath
	if libraryPath == "" {
		libraryPath = runtimeInfo.LibraryPath
	}

	runnerCfg := onnx.RunnerConfig{
		LibraryPath: libraryPath,
		Execution: onnx.ExecutionProviderConfig{
			Provider:     cfg.Runtime.ExecutionProvider,
			IntraThreads: cfg.Runtime.Threads,
			InterThreads: cfg.Runtime.InterOpThreads,
		},
	}

	engine, err := onnx.NewEngine(cfg.Paths.ONNXManifest, runnerCfg)
	if err != nil {
		return nil, fmt.Errorf("load ONNX engine: %w", err)
	}

	return &engineResources{engine: engine, profile: profile, vocab: v}, nil
}

func (r *engineResources) close() {
	if r.engine != nil {
		r.engine.Close()
	}

	if err := onnx.Shutdown(); err != nil {
		slog.Warn("ONNX runtime shutdown", "error", err)
	}
}

// newRecognizer builds one independent Recognizer sharing this process's
// graph sessions. chunkSize, if non-zero, overrides the profile default.
func (r *engineResources) newRecognizer(chunkSize int) (*asr.Recognizer, error) {
	encoder, ok := r.engine.GraphRunner("encoder")
	if !ok {
		return nil, fmt.Errorf("manifest does not define an %q graph", "encoder")
	}

	decoder, ok := r.engine.GraphRunner("decoder_joint")
	if !ok {
		return nil, fmt.Errorf("manifest does not define a %q graph", "decoder_joint")
	}

	var override *int
	if chunkSize > 0 {
		override = &chunkSize
	}

	return asr.NewRecognizer(r.profile, encoder, decoder, r.vocab, override)
}

// resolveProfile maps the config-level profile name to an asr.Profile,
// deriving ProfileEOU's vocab-dependent fields from the loaded vocabulary
// size since that profile's export does not fix VocabSize/BlankID ahead of
// time the way Nemotron's does.
func resolveProfile(name string, vocabSize int) (asr.Profile, error) {
	canonical, err := config.NormalizeProfile(name)
	if err != nil {
		return asr.Profile{}, err
	}

	switch canonical {
	case config.ProfileNemotron:
		return asr.ProfileNemotron, nil
	case config.ProfileEOU:
		return asr.NewEOUProfile(vocabSize), nil
	default:
		return asr.Profile{}, fmt.Errorf("unsupported profile %q", canonical)
	}
}
