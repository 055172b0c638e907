// Package export runs media exports: it pulls the original resource of an
// asset out of the library, computes the crop and resize plan for it and
// hands the plan to a compositor, reporting the compositor's outcome through
// a one-shot completion.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/options"
)

// Exporter exports library assets and local files.
type Exporter struct {
	library library.Library

	videoProber     media.Prober
	videoCompositor media.Compositor
	imageProber     media.Prober
	imageCompositor media.Compositor

	relay    *Relay
	defaults []options.Option
	logger   *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithImagePipeline replaces the prober and compositor used for images.
func WithImagePipeline(p media.Prober, c media.Compositor) ExporterOption {
	return func(e *Exporter) {
		e.imageProber = p
		e.imageCompositor = c
	}
}

// WithDefaults sets options applied before the per-request ones.
func WithDefaults(opts ...options.Option) ExporterOption {
	return func(e *Exporter) { e.defaults = append(e.defaults, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExporter creates an Exporter that renders video with compositor after
// probing it with prober. Images use the imaging pipeline unless replaced.
func NewExporter(lib library.Library, prober media.Prober, compositor media.Compositor, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		library:         lib,
		videoProber:     prober,
		videoCompositor: compositor,
		imageProber:     media.NewImageProber(),
		imageCompositor: media.NewImageCompositor(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.relay = NewRelay(e.logger)
	return e
}

// Wait blocks until every in-flight compositor call has completed.
func (e *Exporter) Wait() {
	e.relay.Wait()
}

// ExportVideo exports the original resource of a video asset to
// Settings.OriginalPath, then renders the resized copy next to it. Lookup,
// probing and plan errors are returned; the compositor outcome is passed to
// complete.
func (e *Exporter) ExportVideo(ctx context.Context, assetID string, complete func(Result), opts ...options.Option) (geometry.Plan, error) {
	settings := options.Resolve(e.defaults, opts...)
	if settings.Container.IsImage() {
		return geometry.Plan{}, fmt.Errorf("%w: %s cannot hold video", media.ErrUnsupportedContainer, settings.Container)
	}

	original, err := e.exportOriginal(ctx, assetID, library.KindVideo, settings)
	if err != nil {
		return geometry.Plan{}, err
	}
	return e.resize(ctx, original, e.videoProber, e.videoCompositor, settings, complete)
}

// ResizeFile renders a resized copy of a local video file next to it.
func (e *Exporter) ResizeFile(ctx context.Context, path string, complete func(Result), opts ...options.Option) (geometry.Plan, error) {
	settings := options.Resolve(e.defaults, opts...)
	if settings.Container.IsImage() {
		return geometry.Plan{}, fmt.Errorf("%w: %s cannot hold video", media.ErrUnsupportedContainer, settings.Container)
	}
	return e.resize(ctx, path, e.videoProber, e.videoCompositor, settings, complete)
}

// ExportImage is ExportVideo for image assets. The container defaults to
// jpeg and must be jpeg, png or webp.
func (e *Exporter) ExportImage(ctx context.Context, assetID string, complete func(Result), opts ...options.Option) (geometry.Plan, error) {
	defaults := append([]options.Option{options.WithContainer(options.ContainerJPEG)}, e.defaults...)
	settings := options.Resolve(defaults, opts...)
	if !settings.Container.IsImage() {
		return geometry.Plan{}, fmt.Errorf("%w: %s cannot hold an image", media.ErrUnsupportedContainer, settings.Container)
	}

	original, err := e.exportOriginal(ctx, assetID, library.KindImage, settings)
	if err != nil {
		return geometry.Plan{}, err
	}
	return e.resize(ctx, original, e.imageProber, e.imageCompositor, settings, complete)
}

// Plan probes a local file and computes its plan without rendering.
func (e *Exporter) Plan(ctx context.Context, path string, image bool, opts ...options.Option) (geometry.Plan, media.Info, error) {
	settings := options.Resolve(e.defaults, opts...)
	prober := e.videoProber
	if image {
		prober = e.imageProber
	}

	info, err := probe(ctx, prober, path)
	if err != nil {
		return geometry.Plan{}, media.Info{}, err
	}
	plan, err := geometry.ComputeTransform(info.Size, info.Metadata, settings.Crop, settings.ResizeMode)
	if err != nil {
		return geometry.Plan{}, media.Info{}, err
	}
	return plan, info, nil
}

func (e *Exporter) exportOriginal(ctx context.Context, assetID string, want library.Kind, settings options.Settings) (string, error) {
	asset, err := e.library.Asset(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	if asset.Kind != want {
		return "", fmt.Errorf("%w: %s is %s, want %s", ErrAssetType, asset.ID, asset.Kind, want)
	}

	dst := settings.OriginalPath()
	if err := os.MkdirAll(settings.ResultDir, 0750); err != nil {
		return "", fmt.Errorf("create result directory: %w", err)
	}
	removeExisting(dst)

	e.logger.Info("exporting original resource",
		slog.String("asset_id", asset.ID),
		slog.String("kind", string(asset.Kind)),
		slog.String("path", dst),
	)

	if err := e.library.Export(ctx, asset, dst); err != nil {
		return "", fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}
	return dst, nil
}

func (e *Exporter) resize(
	ctx context.Context,
	source string,
	prober media.Prober,
	compositor media.Compositor,
	settings options.Settings,
	complete func(Result),
) (geometry.Plan, error) {
	info, err := probe(ctx, prober, source)
	if err != nil {
		return geometry.Plan{}, err
	}

	plan, err := geometry.ComputeTransform(info.Size, info.Metadata, settings.Crop, settings.ResizeMode)
	if err != nil {
		return geometry.Plan{}, err
	}

	trim, err := settings.Trim.Intersect(info.Duration)
	if err != nil {
		return geometry.Plan{}, err
	}

	output := settings.ResizedPath(plan.RenderSize, source)
	removeExisting(output)

	req := media.Request{
		Source:             source,
		Output:             output,
		Plan:               plan,
		Trim:               trim,
		FramesPerSecond:    settings.FramesPerSecond,
		Container:          settings.Container,
		Quality:            settings.Quality,
		OptimizeForNetwork: settings.OptimizeForNetwork,
	}

	e.logger.Info("starting export session",
		slog.String("source", source),
		slog.String("output", output),
		slog.String("orientation", plan.Orientation.String()),
		slog.Int("width", int(plan.RenderSize.Width)),
		slog.Int("height", int(plan.RenderSize.Height)),
	)

	e.relay.Submit(ctx, func(ctx context.Context) (string, error) {
		return compositor.Composite(ctx, req)
	}, func(res Result) {
		if res.Err != nil {
			e.logger.Error("export session failed",
				slog.String("output", output),
				slog.String("error", res.Err.Error()),
			)
		}
		if complete != nil {
			complete(res)
		}
	})

	return plan, nil
}

func probe(ctx context.Context, prober media.Prober, path string) (media.Info, error) {
	info, err := prober.Probe(ctx, path)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, media.ErrNoVideoStream), errors.Is(err, media.ErrInvalidDimensions):
		return media.Info{}, fmt.Errorf("%w: %w", ErrNoSourceTrack, err)
	default:
		return media.Info{}, fmt.Errorf("probe %s: %w", path, err)
	}
}

// removeExisting deletes a previous output. Failures are ignored; the
// compositor overwrites or fails on its own.
func removeExisting(path string) {
	_ = os.Remove(path)
}
