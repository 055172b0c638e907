package bootstrap

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaexport/internal/config"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 8080,
		TempDir:              filepath.Join(t.TempDir(), "work"),
		LibraryDir:           t.TempDir(),
		FFmpegPath:           "ffmpeg",
		FFprobePath:          "ffprobe",
		MaxConcurrentExports: 1,
		ProbeCacheTTL:        time.Minute,
	}
}

func TestNewDependencies_Local(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(cfg, nil)
	require.NoError(t, err)

	assert.NotNil(t, deps.Exporter)
	assert.NotNil(t, deps.ExportService)
	assert.IsType(t, &storage.LocalStorage{}, deps.Storage)
	assert.Equal(t, cfg.TempDir, deps.Storage.Dir())
	assert.DirExists(t, cfg.TempDir)
	assert.Equal(t, []string{"square-video", "userpic", "wall-image", "wall-video"}, deps.Presets.Names())
}

func TestNewDependencies_PresetsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PresetsFile = filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(cfg.PresetsFile, []byte(`presets:
  - name: banner
    mode: aspect_fill
    width: 1200
    height: 400
  - name: userpic
    mode: aspect_fill
    width: 320
    height: 320
`), 0o600))

	deps, err := NewDependencies(cfg, nil)
	require.NoError(t, err)

	banner, err := deps.Presets.Lookup("banner")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, banner.Width)

	userpic, err := deps.Presets.Lookup("userpic")
	require.NoError(t, err)
	assert.Equal(t, 320.0, userpic.Width)
}

func TestNewDependencies_BadPresetsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PresetsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewDependencies(cfg, nil)
	assert.Error(t, err)
}

func TestInitLibrary(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "media"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "test"
	cfg.AWSSecretAccessKey = "test"

	store, err := initStorage(cfg, slog.Default())
	require.NoError(t, err)
	require.IsType(t, &storage.S3Storage{}, store)

	assert.IsType(t, &library.LocalLibrary{}, initLibrary(cfg, store, slog.Default()))

	cfg.S3LibraryPrefix = "library/"
	assert.IsType(t, &library.S3Library{}, initLibrary(cfg, store, slog.Default()))
}

func TestNewProber(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, &media.CachedProber{}, NewProber(cfg))

	for _, ttl := range []time.Duration{0, -time.Second} {
		cfg.ProbeCacheTTL = ttl
		assert.IsType(t, &media.TrackCheckingProber{}, NewProber(cfg), "ttl %s", ttl)
	}
}
