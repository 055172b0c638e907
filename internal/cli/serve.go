package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaexport/internal/bootstrap"
	"github.com/maauso/mediaexport/internal/config"
	"github.com/maauso/mediaexport/internal/server"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the export HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				a.cfg.Port = port
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			return Serve(cmd.Context(), a.cfg, a.logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port. (Env: PORT)")
	return cmd
}

// Serve runs the HTTP API until ctx is done, then drains in-flight requests
// and running exports.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting media export API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("temp_dir", cfg.TempDir),
		slog.Int("max_concurrent_exports", cfg.MaxConcurrentExports),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.ExportService, deps.Presets, logger)
	router := server.NewRouter(handlers, logger, server.Config{AllowedOrigins: cfg.AllowedOrigins})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // downloads of large exports
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := deps.ExportService.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("stop exports: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
