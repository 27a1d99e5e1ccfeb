package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/example/streamcap/internal/doctor"
	"github.com/example/streamcap/internal/onnx"
	"github.com/example/streamcap/internal/vocab"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime and model checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			graphFiles, err := graphFilePaths(cfg.Paths.ONNXManifest)
			if err != nil {
				_, _ = fmt.Fprintf(os.Stdout, "%s onnx manifest: %v\n", doctor.FailMark, err)
			}

			dcfg := doctor.Config{
				ORTVersion: func() (string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return "", err
					}

					return fmt.Sprintf("%s (%s)", info.Version, info.LibraryPath), nil
				},
				ONNXManifestPath: cfg.Paths.ONNXManifest,
				GraphFiles:       graphFiles,
				VocabModelPath:   cfg.Paths.VocabModel,
				InspectVocab: func(path string) (int, error) {
					data, err := os.ReadFile(path)
					if err != nil {
						return 0, err
					}

					v, err := vocab.ParseModel(data)
					if err != nil {
						return 0, err
					}

					return v.Size(), nil
				},
				CheckVocabParity: func() (bool, error) {
					return checkVocabParity(cfg.Paths.VocabModel)
				},
			}

			result := doctor.Run(dcfg, os.Stdout)
			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

// checkVocabParity loads modelPath through both the hand-rolled protobuf
// scanner and the full go-sentencepiece-encoder implementation, and
// reports whether they agree: the hand-rolled decoder's text for the
// first ordinary (non-special) piece id must re-tokenize, through the
// reference implementation, to that same id.
func checkVocabParity(modelPath string) (bool, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return false, err
	}

	v, err := vocab.ParseModel(data)
	if err != nil {
		return false, err
	}

	id, ok := firstOrdinaryPieceID(v)
	if !ok {
		return true, nil
	}

	pc, err := vocab.NewParityChecker(modelPath)
	if err != nil {
		return false, err
	}

	text := strings.TrimLeft(vocab.DecodePieces([]string{v.Piece(id)}), " ")

	return pc.Agrees(text, []int{id}), nil
}

// firstOrdinaryPieceID returns the id of the first piece that is neither
// empty nor a special token (e.g. "<unk>", "<s>"), since those don't round
// trip through a general-purpose tokenizer the way an ordinary word or
// subword piece does.
func firstOrdinaryPieceID(v *vocab.Vocabulary) (int, bool) {
	for id := 0; id < v.Size(); id++ {
		piece := v.Piece(id)
		if piece == "" || strings.HasPrefix(piece, "<") {
			continue
		}

		return id, true
	}

	return 0, false
}

// graphFilePaths reads the ONNX manifest and resolves the on-disk path of
// every graph file it names, without constructing any ORT session.
func graphFilePaths(manifestPath string) ([]string, error) {
	sm, err := onnx.NewSessionManager(manifestPath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(sm.Sessions()))
	for _, s := range sm.Sessions() {
		paths = append(paths, s.Path)
	}

	return paths, nil
}
