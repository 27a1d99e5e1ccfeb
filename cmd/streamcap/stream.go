package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/streamcap/internal/wavio"
	"github.com/spf13/cobra"
)

func newStreamCmd() *cobra.Command {
	var chunkMS int
	var realtime bool

	cmd := &cobra.Command{
		Use:   "stream [wav-file]",
		Short: "Simulate a live streaming session by feeding a WAV file incrementally",
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

			rec, err := resources.newRecognizer(cfg.ASR.ChunkSize)
			if err != nil {
				return fmt.Errorf("build recognizer: %w", err)
			}

			return runStream(cmd.Context(), streamOptions{
				samples:  samples,
				chunkMS:  chunkMS,
				realtime: realtime,
				transcribeChunk: func(ctx context.Context, chunk []float32) (string, error) {
					return rec.TranscribeChunk(ctx, chunk)
				},
				out: os.Stdout,
			})
		},
	}

	cmd.Flags().IntVar(&chunkMS, "chunk-ms", 160, "Simulated chunk size in milliseconds of audio")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Pace chunk delivery to wall-clock audio duration")

	return cmd
}

type streamOptions struct {
	samples         []float32
	chunkMS         int
	realtime        bool
	transcribeChunk func(context.Context, []float32) (string, error)
	out             *os.File
}

// runStream feeds samples to transcribeChunk in chunkMS-sized slices,
// printing each non-empty text delta as it is produced. With realtime set,
// delivery is paced to the wall-clock duration of each chunk, matching how
// a live microphone feed would arrive.
func runStream(ctx context.Context, opts streamOptions) error {
	const sampleRate = 16000

	chunkSamples := opts.chunkMS * sampleRate / 1000
	if chunkSamples <= 0 {
		chunkSamples = 1
	}

	for start := 0; start < len(opts.samples); start += chunkSamples {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + chunkSamples
		if end > len(opts.samples) {
			end = len(opts.samples)
		}

		if opts.realtime {
			time.Sleep(time.Duration(opts.chunkMS) * time.Millisecond)
		}

		delta, err := opts.transcribeChunk(ctx, opts.samples[start:end])
		if err != nil {
			return fmt.Errorf("transcribe chunk at sample %d: %w", start, err)
		}

		if delta != "" {
			fmt.Fprintln(opts.out, delta)
		}
	}

	return nil
}
