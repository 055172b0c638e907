// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrS3Incomplete is returned when S3_BUCKET is set without S3_REGION, or
	// the other way round.
	ErrS3Incomplete = errors.New("config: S3_BUCKET and S3_REGION must be set together")
	// ErrAWSCredentialsIncomplete is returned when only one of the AWS keys is set.
	ErrAWSCredentialsIncomplete = errors.New("config: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_EXPORTS is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_EXPORTS must be positive")
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	TempDir     string `env:"TEMP_DIR, default=/tmp/mediaexport" json:"temp_dir"`
	LibraryDir  string `env:"LIBRARY_DIR, default=/var/lib/mediaexport/library" json:"library_dir"`
	PresetsFile string `env:"PRESETS_FILE" json:"presets_file,omitempty"`

	// Tooling
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Processing settings
	MaxConcurrentExports int           `env:"MAX_CONCURRENT_EXPORTS, default=2" json:"max_concurrent_exports"`
	ExportTimeout        time.Duration `env:"EXPORT_TIMEOUT, default=0s" json:"export_timeout"`
	ProbeCacheTTL        time.Duration `env:"PROBE_CACHE_TTL, default=10m" json:"probe_cache_ttl"` // 0 disables the probe cache

	// Optional S3 settings. With a bucket, exports can be published and the
	// asset library is read from S3_LIBRARY_PREFIX instead of LIBRARY_DIR.
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3LibraryPrefix    string `env:"S3_LIBRARY_PREFIX" json:"s3_library_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects half-configured S3 and unusable limits.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxConcurrentExports < 1 {
		return ErrInvalidConcurrency
	}
	if (c.S3Bucket == "") != (c.S3Region == "") {
		return ErrS3Incomplete
	}
	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		return ErrAWSCredentialsIncomplete
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w. The CLI logs to stderr so stdout
// stays machine-readable.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, LibraryDir: %s, PresetsFile: %s, FFmpegPath: %s, FFprobePath: %s, MaxConcurrentExports: %d, ExportTimeout: %s, ProbeCacheTTL: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, S3LibraryPrefix: %s, AWSAccessKeyID: %s, AWSSecretAccessKey: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.LibraryDir,
		c.PresetsFile,
		c.FFmpegPath,
		c.FFprobePath,
		c.MaxConcurrentExports,
		c.ExportTimeout,
		c.ProbeCacheTTL,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.S3LibraryPrefix,
		mask(c.AWSAccessKeyID),
		mask(c.AWSSecretAccessKey),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
