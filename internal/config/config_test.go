package config

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMap(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "/tmp/mediaexport", cfg.TempDir)
	assert.Equal(t, "/var/lib/mediaexport/library", cfg.LibraryDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, 2, cfg.MaxConcurrentExports)
	assert.Equal(t, time.Duration(0), cfg.ExportTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ProbeCacheTTL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"PORT":                   "3000",
		"ALLOWED_ORIGINS":        "https://a.example,https://b.example",
		"TEMP_DIR":               "/custom/temp",
		"LIBRARY_DIR":            "/srv/media",
		"PRESETS_FILE":           "/etc/mediaexport/presets.yaml",
		"FFMPEG_PATH":            "/opt/ffmpeg/bin/ffmpeg",
		"MAX_CONCURRENT_EXPORTS": "4",
		"EXPORT_TIMEOUT":         "5m",
		"PROBE_CACHE_TTL":        "30s",
		"S3_BUCKET":              "my-bucket",
		"S3_REGION":              "us-east-1",
		"S3_ENDPOINT":            "http://localhost:9000",
		"S3_LIBRARY_PREFIX":      "library/",
		"AWS_ACCESS_KEY_ID":      "AKIA",
		"AWS_SECRET_ACCESS_KEY":  "secret",
		"LOG_FORMAT":             "json",
		"LOG_LEVEL":              "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/srv/media", cfg.LibraryDir)
	assert.Equal(t, "/etc/mediaexport/presets.yaml", cfg.PresetsFile)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, 4, cfg.MaxConcurrentExports)
	assert.Equal(t, 5*time.Minute, cfg.ExportTimeout)
	assert.Equal(t, 30*time.Second, cfg.ProbeCacheTTL)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "library/", cfg.S3LibraryPrefix)
	assert.True(t, cfg.S3Enabled())
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"bucket without region", map[string]string{"S3_BUCKET": "b"}, ErrS3Incomplete},
		{"region without bucket", map[string]string{"S3_REGION": "eu-west-1"}, ErrS3Incomplete},
		{"half credentials", map[string]string{"AWS_ACCESS_KEY_ID": "AKIA"}, ErrAWSCredentialsIncomplete},
		{"zero concurrency", map[string]string{"MAX_CONCURRENT_EXPORTS": "0"}, ErrInvalidConcurrency},
		{"port out of range", map[string]string{"PORT": "70000"}, ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMap(t, tt.env)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_MalformedValue(t *testing.T) {
	_, err := loadMap(t, map[string]string{"PROBE_CACHE_TTL": "soon"})
	assert.Error(t, err)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("S3_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestConfig_String_MasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		S3Bucket:           "bucket",
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "super-secret",
	}

	s := cfg.String()
	assert.Contains(t, s, "bucket")
	assert.Contains(t, s, "****")
	assert.NotContains(t, s, "AKIAEXAMPLE")
	assert.NotContains(t, s, "super-secret")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogFormat: "json", LogLevel: "info"}

	cfg.NewLoggerTo(&buf).Info("hello", slog.String("k", "v"))

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		cfg := &Config{LogFormat: format, LogLevel: "warn"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	}
}
