package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/options"
)

// ImageCompositor implements Compositor for still images using the imaging
// library. Sources are decoded with EXIF auto-orientation, so plans for them
// must be computed from ImageProber output.
type ImageCompositor struct{}

// Ensure ImageCompositor implements Compositor.
var _ Compositor = (*ImageCompositor)(nil)

// NewImageCompositor creates a new ImageCompositor.
func NewImageCompositor() *ImageCompositor {
	return &ImageCompositor{}
}

// Composite renders the source image through the plan and encodes it as
// JPEG, PNG or WebP. Trim and frame rate do not apply to images.
func (c *ImageCompositor) Composite(ctx context.Context, req Request) (string, error) {
	if !req.Container.IsImage() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContainer, req.Container)
	}

	src, err := imaging.Open(req.Source, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := Render(src, req.Plan)
	if err != nil {
		return "", err
	}

	f, err := os.Create(req.Output) // #nosec G304 - output path is built by the export pipeline
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	if err := encodeImage(f, out, req.Container, req.Quality); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close output: %w", err)
	}
	return req.Output, nil
}

// Render applies a plan to a decoded image: rotate, scale, crop the visible
// window and paste it onto a black canvas of the render size.
func Render(src image.Image, plan geometry.Plan) (*image.NRGBA, error) {
	b := src.Bounds()
	if got := (geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}); got != plan.RawSize {
		return nil, fmt.Errorf("%w: image is %vx%v, plan expects %vx%v",
			ErrInvalidDimensions, got.Width, got.Height, plan.RawSize.Width, plan.RawSize.Height)
	}

	p, err := plan.PlacementOf()
	if err != nil {
		return nil, fmt.Errorf("place frame: %w", err)
	}

	var img *image.NRGBA
	switch p.QuarterTurns {
	case 1:
		img = imaging.Rotate270(src)
	case 2:
		img = imaging.Rotate180(src)
	case 3:
		img = imaging.Rotate90(src)
	default:
		img = imaging.Clone(src)
	}

	w, h := int(p.ScaledSize.Width), int(p.ScaledSize.Height)
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	window := image.Rect(
		int(p.Window.X),
		int(p.Window.Y),
		int(p.Window.X+p.Window.Width),
		int(p.Window.Y+p.Window.Height),
	)
	img = imaging.Crop(img, window)

	canvas := imaging.New(int(p.Canvas.Width), int(p.Canvas.Height), color.Black)
	return imaging.Paste(canvas, img, image.Pt(int(p.Pad.X), int(p.Pad.Y))), nil
}

func encodeImage(w io.Writer, img image.Image, container options.Container, quality options.Quality) error {
	var err error
	switch container {
	case options.ContainerWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: float32(quality.ImageQuality())})
	case options.ContainerPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	default:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality.ImageQuality()))
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", container, err)
	}
	return nil
}

// ImageProber implements Prober for still images. EXIF orientation is
// applied on decode, so the reported frame is already upright and carries
// identity metadata.
type ImageProber struct{}

// Ensure ImageProber implements Prober.
var _ Prober = (*ImageProber)(nil)

// NewImageProber creates a new ImageProber.
func NewImageProber() *ImageProber {
	return &ImageProber{}
}

// Probe implements Prober.
func (p *ImageProber) Probe(ctx context.Context, path string) (Info, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrNoVideoStream, err)
	}
	b := img.Bounds()
	return Info{
		Size:     geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
		Metadata: geometry.Identity,
	}, nil
}
