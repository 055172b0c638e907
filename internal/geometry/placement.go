package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyPlacement is returned when a transform moves the whole frame
// outside the render canvas.
var ErrEmptyPlacement = errors.New("transformed frame does not intersect the render canvas")

// Rect is an integer-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement breaks a quarter-turn transform into the steps filter-based
// compositors understand: rotate, scale, crop a window, pad onto the canvas.
// All sizes are whole pixels.
type Placement struct {
	// QuarterTurns counts clockwise quarter turns, in [0,3].
	QuarterTurns int `json:"quarter_turns"`
	// ScaledSize is the frame size after rotation and scaling.
	ScaledSize Size `json:"scaled_size"`
	// Window is the part of the scaled frame that lands on the canvas.
	Window Rect `json:"window"`
	// Pad is where the window's top-left lands on the canvas.
	Pad Point `json:"pad"`
	// Canvas is the render size.
	Canvas Size `json:"canvas"`
}

// Identity reports whether the placement leaves the frame untouched.
func (p Placement) Identity() bool {
	return p.QuarterTurns == 0 &&
		p.Window == Rect{Width: p.ScaledSize.Width, Height: p.ScaledSize.Height} &&
		p.Pad == Point{} &&
		p.Canvas == p.ScaledSize
}

// PlacementOf decomposes the plan's transform for its raw frame size.
func (p Plan) PlacementOf() (Placement, error) {
	return Decompose(p.RawSize, p.Transform, p.RenderSize)
}

// Decompose maps a raw frame of the given size through t and clips it to
// the canvas. Only rotations by multiples of 90° are representable; skew is
// ignored.
func Decompose(raw Size, t AffineTransform, canvas Size) (Placement, error) {
	if !positive(raw) {
		return Placement{}, fmt.Errorf("%w: raw %vx%v", ErrInvalidSize, raw.Width, raw.Height)
	}
	if !positive(canvas) {
		return Placement{}, fmt.Errorf("%w: canvas %vx%v", ErrInvalidSize, canvas.Width, canvas.Height)
	}

	sx := math.Hypot(t.A, t.C)
	sy := math.Hypot(t.B, t.D)
	if sx == 0 || sy == 0 {
		return Placement{}, fmt.Errorf("%w: degenerate transform %+v", ErrInvalidSize, t)
	}

	angle := math.Atan2(t.B/sy, t.A/sx)
	turns := (int(math.Round(angle/(math.Pi/2)))%4 + 4) % 4

	rotated := raw
	if turns%2 == 1 {
		rotated = Size{Width: raw.Height, Height: raw.Width}
	}
	scaled := Size{
		Width:  math.Round(rotated.Width * sx),
		Height: math.Round(rotated.Height * sy),
	}

	origin := Point{X: math.Inf(1), Y: math.Inf(1)}
	for _, corner := range []Point{{0, 0}, {raw.Width, 0}, {0, raw.Height}, {raw.Width, raw.Height}} {
		q := t.Apply(corner)
		origin.X = math.Min(origin.X, q.X)
		origin.Y = math.Min(origin.Y, q.Y)
	}
	origin.X = math.Round(origin.X)
	origin.Y = math.Round(origin.Y)

	x0 := math.Max(0, -origin.X)
	y0 := math.Max(0, -origin.Y)
	x1 := math.Min(scaled.Width, canvas.Width-origin.X)
	y1 := math.Min(scaled.Height, canvas.Height-origin.Y)
	if x1 <= x0 || y1 <= y0 {
		return Placement{}, ErrEmptyPlacement
	}

	return Placement{
		QuarterTurns: turns,
		ScaledSize:   scaled,
		Window:       Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0},
		Pad:          Point{X: math.Max(0, origin.X), Y: math.Max(0, origin.Y)},
		Canvas:       canvas,
	}, nil
}
