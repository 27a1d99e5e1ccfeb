package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/streamcap/internal/config"
	"github.com/example/streamcap/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming transcription websocket server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			resources, err := loadEngineResources(cfg)
			if err != nil {
				return err
			}
			defer resources.close()

			factory := func() (server.Recognizer, error) {
				return resources.newRecognizer(cfg.ASR.ChunkSize)
			}

			srv := server.New(cfg.Server.ListenAddr, factory, cfg.Server.Workers, cfg.Server.MaxFrameBytes).
				WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	defaults := config.DefaultConfig()
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}
