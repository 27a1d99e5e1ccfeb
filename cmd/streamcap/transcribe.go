package main

import (
	"fmt"
	"os"

	"github.com/example/streamcap/internal/wavio"
	"github.com/spf13/cobra"
)

func newTranscribeCmd() *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "transcribe [wav-file]",
		Short: "Transcribe a complete WAV file offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %q: %w", args[0], err)
			}

			samples, err := wavio.DecodeWAV(data)
			if err != nil {
				return fmt.Errorf("decode WAV: %w", err)
			}

			resources, err := loadEngineResources(cfg)
			if err != nil {
				return err
			}
			defer resources.close()

			rec, err := resources.newRecognizer(chunkSize)
			if err != nil {
				return fmt.Errorf("build recognizer: %w", err)
			}

			transcript, err := rec.TranscribeAudio(cmd.Context(), samples)
			if err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}

			_, err = fmt.Fprintln(os.Stdout, transcript)

			return err
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Override streaming chunk size (0 = profile default)")

	return cmd
}
