package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/namaste/namaste/internal/platform/fhirtest"
)

func mockServerCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mock-server",
		Short: "Run the built-in NAMASTE terminology server for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			srv := fhirtest.New(fhirtest.Options{
				Username: cfg.MockUsername,
				Password: cfg.MockPassword,
				Secret:   []byte(cfg.MockJWTSecret),
				Logger:   logger,
			})

			addr := ":" + cfg.MockPort
			go func() {
				logger.Info().Str("addr", addr).Msg("starting mock terminology server")
				if err := srv.Echo().Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("mock server error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Echo().Shutdown(ctx)
		},
	}
}
