package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /presets", h.ListPresets)
	mux.HandleFunc("POST /transforms", h.ComputeTransform)
	mux.HandleFunc("POST /exports", h.CreateExport)
	mux.HandleFunc("GET /exports", h.ListExports)
	mux.HandleFunc("GET /exports/{id}", h.GetExport)
	mux.HandleFunc("GET /exports/{id}/file", h.DownloadExport)
	mux.HandleFunc("DELETE /exports/{id}", h.CancelExport)
	mux.HandleFunc("DELETE /exports/{id}/file", h.DeleteExportFile)

	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
