// Package bootstrap wires the export service's dependencies from
// configuration.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/mediaexport/internal/config"
	"github.com/maauso/mediaexport/internal/export"
	"github.com/maauso/mediaexport/internal/job"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/options"
	"github.com/maauso/mediaexport/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server and
// the CLI.
type Dependencies struct {
	Exporter      *export.Exporter
	ExportService *job.ExportService
	Presets       *options.Registry
	Storage       storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	presets, err := NewPresets(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	lib := initLibrary(cfg, store, logger)

	exporter := NewExporter(cfg, lib, store.Dir(), logger)

	svc := job.NewExportService(
		job.NewMemoryRepository(),
		exporter,
		store,
		logger,
		job.WithMaxConcurrent(cfg.MaxConcurrentExports),
		job.WithTimeout(cfg.ExportTimeout),
	)

	return &Dependencies{
		Exporter:      exporter,
		ExportService: svc,
		Presets:       presets,
		Storage:       store,
	}, nil
}

// NewExporter builds the export pipeline: ffprobe behind an mp4 track check
// and a cache, ffmpeg for video and the imaging pipeline for stills.
// Originals are exported under resultDir.
func NewExporter(cfg *config.Config, lib library.Library, resultDir string, logger *slog.Logger) *export.Exporter {
	compositor := media.NewFFmpegCompositor(cfg.FFmpegPath, logger)

	return export.NewExporter(lib, NewProber(cfg), compositor,
		export.WithLogger(logger),
		export.WithDefaults(options.WithResultDir(resultDir)),
	)
}

// NewProber builds the video prober. PROBE_CACHE_TTL of zero or less
// disables the cache.
func NewProber(cfg *config.Config) media.Prober {
	var prober media.Prober = media.NewTrackCheckingProber(media.NewFFprobeProber(cfg.FFprobePath), media.NewMP4Inspector())
	if cfg.ProbeCacheTTL <= 0 {
		return prober
	}
	return media.NewCachedProber(prober, cfg.ProbeCacheTTL)
}

// NewPresets loads the builtin presets plus those of PRESETS_FILE, which
// may replace builtins by name.
func NewPresets(cfg *config.Config, logger *slog.Logger) (*options.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := options.NewRegistry(options.BuiltinPresets()...)
	if cfg.PresetsFile == "" {
		return registry, nil
	}

	extra, err := options.LoadPresetsFile(cfg.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	registry.Add(extra...)
	logger.Info("presets loaded",
		slog.String("file", cfg.PresetsFile),
		slog.Int("count", len(extra)),
	)
	return registry, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}

// initLibrary reads assets from the bucket when S3 storage and a library
// prefix are configured, and from LIBRARY_DIR otherwise.
func initLibrary(cfg *config.Config, store storage.Storage, logger *slog.Logger) library.Library {
	if s3Store, ok := store.(*storage.S3Storage); ok && cfg.S3LibraryPrefix != "" {
		logger.Info("S3 asset library configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("prefix", cfg.S3LibraryPrefix),
		)
		return library.NewS3Library(s3Store.Client(), cfg.S3Bucket, cfg.S3LibraryPrefix)
	}

	logger.Info("local asset library configured",
		slog.String("library_dir", cfg.LibraryDir),
	)
	return library.NewLocalLibrary(cfg.LibraryDir)
}
