// Package cli implements the mediaexport command line: plan computation,
// one-off local exports and the HTTP server.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaexport/internal/config"
)

// app carries state shared by the subcommands. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	logLevel  string
	logFormat string
}

// NewRootCmd builds the mediaexport command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mediaexport",
		Short: "Orientation-aware video and image export",
		Long: `mediaexport resizes, crops and re-orients videos and images the way they
are displayed, rendering through ffmpeg or the built-in image pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Logging level (debug, info, warn, error). (Env: LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format (text, json). (Env: LOG_FORMAT)")

	root.AddCommand(
		newTransformCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// load reads the environment configuration and applies flag overrides.
// Flags take precedence over the environment.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	a.cfg = cfg
	a.logger = cfg.NewLoggerTo(cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}
