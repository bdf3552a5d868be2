package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/namaste/namaste/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	envFile  string
	username string
	password string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "namaste",
		Short:         "NAMASTE terminology client and clinical gateway",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "load environment variables from this file before reading config")
	root.PersistentFlags().StringVar(&g.username, "username", "", "terminology server username")
	root.PersistentFlags().StringVar(&g.password, "password", "", "terminology server password")

	root.AddCommand(
		serveCmd(g),
		mockServerCmd(g),
		loginCmd(g),
		logoutCmd(g),
		statusCmd(g),
		searchCmd(g),
		translateCmd(g),
		lookupCmd(g),
	)
	return root
}

// load reads the optional env file, then the configuration.
func (g *globals) load() (*config.Config, zerolog.Logger, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("load env file %s: %w", g.envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, newLogger(cfg, os.Stderr), nil
}

// newLogger writes JSON, or console output in development.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
