package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Static errors for geometry computation.
var (
	// ErrResizeConfiguration is returned when the resize mode is unset, None,
	// or carries unusable parameters.
	ErrResizeConfiguration = errors.New("resize mode is not configured")
	// ErrInvalidCrop is returned when crop percentages leave no frame behind.
	ErrInvalidCrop = errors.New("invalid crop: each inset must be in [0,100) and opposite insets must sum below 100")
	// ErrInvalidSize is returned when a frame size is not positive.
	ErrInvalidSize = errors.New("invalid size: width and height must be positive")
)

// Crop holds per-cent insets discarded from each edge before resizing.
type Crop struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// ZeroCrop keeps the whole frame.
var ZeroCrop = Crop{}

// IsZero reports whether no inset is set.
func (c Crop) IsZero() bool {
	return c == ZeroCrop
}

// Validate checks every inset is in [0,100) and each axis keeps some frame.
func (c Crop) Validate() error {
	for _, v := range []float64{c.Top, c.Left, c.Bottom, c.Right} {
		if math.IsNaN(v) || v < 0 || v >= 100 {
			return fmt.Errorf("%w: got %+v", ErrInvalidCrop, c)
		}
	}
	if c.Left+c.Right >= 100 || c.Top+c.Bottom >= 100 {
		return fmt.Errorf("%w: got %+v", ErrInvalidCrop, c)
	}
	return nil
}

// ResizeMode selects how the cropped frame maps onto the render size.
// The implementations are AspectFit, AspectFill, AspectRatioBestFill and None.
type ResizeMode interface {
	resizeMode()
	// Name is a short identifier used in logs and JSON.
	Name() string
}

// AspectFit keeps the whole cropped frame and widens the working rectangle
// on one axis to reach the target aspect ratio.
type AspectFit struct {
	Size Size
}

// AspectFill crops toward the centre on one axis so the frame covers the
// target exactly.
type AspectFill struct {
	Size Size
}

// Limits bound the output of AspectRatioBestFill. Aspect ratios are
// height/width.
type Limits struct {
	MinWidth       float64 `json:"min_width" yaml:"min_width" validate:"gt=0"`
	MaxWidth       float64 `json:"max_width" yaml:"max_width" validate:"gtefield=MinWidth"`
	MinAspectRatio float64 `json:"min_aspect_ratio" yaml:"min_aspect_ratio" validate:"gt=0"`
	MaxAspectRatio float64 `json:"max_aspect_ratio" yaml:"max_aspect_ratio" validate:"gtefield=MinAspectRatio"`
}

// AspectRatioBestFill clamps the aspect ratio and width of the cropped
// frame into Limits, cropping centred and scaling uniformly as needed.
type AspectRatioBestFill struct {
	Limits Limits
}

// None means no resize policy was configured. Compose rejects it.
type None struct{}

func (AspectFit) resizeMode()           {}
func (AspectFill) resizeMode()          {}
func (AspectRatioBestFill) resizeMode() {}
func (None) resizeMode()                {}

// Name implements ResizeMode.
func (AspectFit) Name() string { return "aspect_fit" }

// Name implements ResizeMode.
func (AspectFill) Name() string { return "aspect_fill" }

// Name implements ResizeMode.
func (AspectRatioBestFill) Name() string { return "aspect_ratio_best_fill" }

// Name implements ResizeMode.
func (None) Name() string { return "none" }

// Transformation is the outcome of Compose.
type Transformation struct {
	// TargetSize is the render size, rounded to whole pixels.
	TargetSize Size `json:"target_size"`
	// CropOffset is the top-left of the kept region in source pixels, rounded.
	// Aspect fit may make it negative.
	CropOffset Point `json:"crop_offset"`
	// Scale is applied after cropping. It is not rounded.
	Scale Point `json:"scale"`
}

// working is the mutable state of one Compose run.
type working struct {
	size   Size
	offset Point
	scale  float64
}

// Compose computes crop offsets, scale and render size for a frame of the
// given upright size. It never inspects pixels, so it performs no bounds
// checks against the source beyond validating its inputs.
func Compose(original Size, crop Crop, mode ResizeMode) (Transformation, error) {
	if !positive(original) {
		return Transformation{}, fmt.Errorf("%w: original %vx%v", ErrInvalidSize, original.Width, original.Height)
	}
	if err := crop.Validate(); err != nil {
		return Transformation{}, err
	}

	w := working{
		size: Size{
			Width:  original.Width * (1 - (crop.Left+crop.Right)/100),
			Height: original.Height * (1 - (crop.Top+crop.Bottom)/100),
		},
		offset: Point{
			X: original.Width * crop.Left / 100,
			Y: original.Height * crop.Top / 100,
		},
		scale: 1,
	}

	switch m := mode.(type) {
	case AspectFit:
		if !positive(m.Size) {
			return Transformation{}, fmt.Errorf("%w: aspect fit size %vx%v", ErrInvalidSize, m.Size.Width, m.Size.Height)
		}
		w.fit(m.Size)
	case AspectFill:
		if !positive(m.Size) {
			return Transformation{}, fmt.Errorf("%w: aspect fill size %vx%v", ErrInvalidSize, m.Size.Width, m.Size.Height)
		}
		w.fill(m.Size)
	case AspectRatioBestFill:
		if err := m.Limits.validate(); err != nil {
			return Transformation{}, err
		}
		w.bestFill(m.Limits)
	case None, nil:
		return Transformation{}, ErrResizeConfiguration
	default:
		return Transformation{}, fmt.Errorf("%w: unsupported mode %T", ErrResizeConfiguration, mode)
	}

	return Transformation{
		TargetSize: Size{
			Width:  math.Round(w.size.Width * w.scale),
			Height: math.Round(w.size.Height * w.scale),
		},
		CropOffset: Point{
			X: math.Round(w.offset.X),
			Y: math.Round(w.offset.Y),
		},
		Scale: Point{X: w.scale, Y: w.scale},
	}, nil
}

// fit grows the working rectangle on one axis and moves the offset outward
// by half the growth, so the offset goes negative and the frame is padded.
func (w *working) fit(target Size) {
	ratio := w.size.Height / w.size.Width
	targetRatio := target.Height / target.Width

	switch {
	case ratio < targetRatio:
		height := w.size.Width * targetRatio
		w.offset.Y -= (height - w.size.Height) / 2
		w.size.Height = height
		w.scale = target.Width / w.size.Width
	default:
		if ratio > targetRatio {
			width := w.size.Height / targetRatio
			w.offset.X -= (width - w.size.Width) / 2
			w.size.Width = width
		}
		w.scale = target.Height / w.size.Height
	}
}

// fill shrinks the working rectangle on one axis, moving the offset inward.
func (w *working) fill(target Size) {
	ratio := w.size.Height / w.size.Width
	targetRatio := target.Height / target.Width

	if ratio > targetRatio {
		w.shrinkHeight(targetRatio)
		w.scale = target.Width / w.size.Width
		return
	}
	w.shrinkWidth(targetRatio)
	w.scale = target.Height / w.size.Height
}

func (w *working) bestFill(l Limits) {
	ratio := w.size.Height / w.size.Width

	if ratio > l.MaxAspectRatio {
		w.shrinkHeight(l.MaxAspectRatio)
		ratio = l.MaxAspectRatio
	}
	if ratio < l.MinAspectRatio {
		w.shrinkWidth(l.MinAspectRatio)
	}

	switch {
	case w.size.Width < l.MinWidth:
		w.scale = l.MinWidth / w.size.Width
	case w.size.Width > l.MaxWidth:
		w.scale = l.MaxWidth / w.size.Width
	}
}

// shrinkHeight crops height down to width*ratio, centred.
func (w *working) shrinkHeight(ratio float64) {
	height := w.size.Width * ratio
	w.offset.Y += (w.size.Height - height) / 2
	w.size.Height = height
}

// shrinkWidth crops width down to height/ratio, centred.
func (w *working) shrinkWidth(ratio float64) {
	width := w.size.Height / ratio
	w.offset.X += (w.size.Width - width) / 2
	w.size.Width = width
}

func (l Limits) validate() error {
	if l.MinWidth <= 0 || l.MaxWidth < l.MinWidth || l.MinAspectRatio <= 0 || l.MaxAspectRatio < l.MinAspectRatio {
		return fmt.Errorf("%w: best fill limits %+v", ErrResizeConfiguration, l)
	}
	return nil
}

func positive(s Size) bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}
