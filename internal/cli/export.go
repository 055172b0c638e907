package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaexport/internal/bootstrap"
	"github.com/maauso/mediaexport/internal/export"
	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/job/id"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/options"
	"github.com/maauso/mediaexport/internal/storage"
)

// exportFlags are the encoder flags of the export command.
type exportFlags struct {
	resize       resizeFlags
	container    string
	quality      string
	fps          int
	start        time.Duration
	duration     time.Duration
	optimize     bool
	outputDir    string
	keepOriginal bool
}

func (f *exportFlags) options(presets *options.Registry) ([]options.Option, error) {
	opts, err := f.resize.options(presets)
	if err != nil {
		return nil, err
	}
	if f.container != "" {
		c, err := options.ParseContainer(f.container)
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithContainer(c))
	}
	if f.quality != "" {
		q, err := options.ParseQuality(f.quality)
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithQuality(q))
	}
	if f.fps > 0 {
		opts = append(opts, options.WithFramesPerSecond(f.fps))
	}
	if f.start > 0 || f.duration > 0 {
		opts = append(opts, options.WithTrim(options.TimeRange{Start: f.start, Duration: f.duration}))
	}
	return append(opts, options.WithOptimizeForNetwork(f.optimize)), nil
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export one local video or image and print the output path",
		Long: `export copies FILE into the output directory, renders the resized copy
next to it and waits for the compositor. The copied original is removed
afterwards unless --keep-original is set.`,
		Example: `  mediaexport export --preset square-video --start 2s --duration 10s clip.mp4
  mediaexport export --mode aspect_fit --size 1280x720 --container webp photo.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := bootstrap.NewPresets(a.cfg, a.logger)
			if err != nil {
				return err
			}
			opts, err := f.options(presets)
			if err != nil {
				return err
			}

			outputDir := f.outputDir
			if outputDir == "" {
				outputDir = a.cfg.TempDir
			}
			store, err := storage.NewLocalStorage(outputDir)
			if err != nil {
				return err
			}

			path, err := runExport(cmd.Context(), a, store, args[0], f.keepOriginal, opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	f.resize.register(cmd)
	cmd.Flags().StringVar(&f.container, "container", "", "Output container: mp4, mov, m4v, jpeg, png or webp")
	cmd.Flags().StringVar(&f.quality, "quality", "", "Encoder quality: highest, medium or low")
	cmd.Flags().IntVar(&f.fps, "fps", 0, "Output frame rate; 0 keeps the default of 30")
	cmd.Flags().DurationVar(&f.start, "start", 0, "Trim start")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "Trim duration; 0 runs to the end")
	cmd.Flags().BoolVar(&f.optimize, "optimize", true, "Move the mp4 index to the front for progressive playback")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Where the export is written (default: TEMP_DIR)")
	cmd.Flags().BoolVar(&f.keepOriginal, "keep-original", false, "Keep the copied original next to the export")
	return cmd
}

// runExport exports source through a library rooted at its directory and
// waits for the result.
func runExport(ctx context.Context, a *app, store storage.Storage, source string, keepOriginal bool, opts ...options.Option) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	assetID := filepath.Base(abs)

	// The copied original keeps the source extension so its path is known
	// before the exporter resolves the container.
	original := filepath.Join(store.Dir(), id.Filename()+filepath.Ext(assetID))
	opts = append(opts, options.WithResultFilename(filepath.Base(original)))

	exporter := bootstrap.NewExporter(a.cfg, library.NewLocalLibrary(filepath.Dir(abs)), store.Dir(), a.logger)

	var start func(context.Context, string, func(export.Result), ...options.Option) (geometry.Plan, error)
	switch kind := library.KindOf(assetID); kind {
	case library.KindVideo:
		start = exporter.ExportVideo
	case library.KindImage:
		start = exporter.ExportImage
	default:
		return "", fmt.Errorf("%w: %s is %s", export.ErrAssetType, assetID, kind)
	}

	path, err := export.Await(ctx, func(complete func(export.Result)) error {
		plan, err := start(ctx, assetID, complete, opts...)
		if err == nil {
			a.logger.Info("export planned",
				slog.String("asset_id", assetID),
				slog.String("orientation", plan.Orientation.String()),
				slog.Int("width", int(plan.RenderSize.Width)),
				slog.Int("height", int(plan.RenderSize.Height)),
			)
		}
		return err
	})
	exporter.Wait()

	if !keepOriginal {
		if cerr := store.Cleanup(context.WithoutCancel(ctx), []string{original}); cerr != nil {
			a.logger.Warn("failed to remove copied original",
				slog.String("path", original),
				slog.String("error", cerr.Error()),
			)
		}
	}
	return path, err
}
