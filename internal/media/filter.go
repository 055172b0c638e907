package media

import (
	"fmt"
	"strings"

	"github.com/maauso/mediaexport/internal/geometry"
)

// TransposeFilter turns the frame by quarter turns. Positive turns are
// clockwise.
type TransposeFilter struct {
	QuarterTurns int
}

// String returns the ffmpeg filter string, or "" for no rotation.
func (t TransposeFilter) String() string {
	switch ((t.QuarterTurns % 4) + 4) % 4 {
	case 1:
		return "transpose=1"
	case 2:
		return "transpose=1,transpose=1"
	case 3:
		return "transpose=2"
	default:
		return ""
	}
}

// ScaleFilter resizes to exact pixel dimensions.
type ScaleFilter struct {
	Width, Height int
}

// String returns the ffmpeg filter string.
func (s ScaleFilter) String() string {
	return fmt.Sprintf("scale=%d:%d", s.Width, s.Height)
}

// CropFilter keeps a pixel window.
type CropFilter struct {
	Width, Height, X, Y int
}

// String returns the ffmpeg filter string.
func (c CropFilter) String() string {
	return fmt.Sprintf("crop=%d:%d:%d:%d", c.Width, c.Height, c.X, c.Y)
}

// PadFilter places the frame on a black canvas.
type PadFilter struct {
	Width, Height, X, Y int
}

// String returns the ffmpeg filter string.
func (p PadFilter) String() string {
	return fmt.Sprintf("pad=%d:%d:%d:%d:black", p.Width, p.Height, p.X, p.Y)
}

// FilterGraph renders a placement as a linear ffmpeg video filter chain.
// Steps that would not change the frame are left out. A non-positive fps
// keeps the source frame rate.
func FilterGraph(p geometry.Placement, fps int) string {
	var filters []string

	if t := (TransposeFilter{QuarterTurns: p.QuarterTurns}).String(); t != "" {
		filters = append(filters, t)
	}

	filters = append(filters, ScaleFilter{
		Width:  int(p.ScaledSize.Width),
		Height: int(p.ScaledSize.Height),
	}.String())

	if p.Window.X != 0 || p.Window.Y != 0 || p.Window.Width != p.ScaledSize.Width || p.Window.Height != p.ScaledSize.Height {
		filters = append(filters, CropFilter{
			Width:  int(p.Window.Width),
			Height: int(p.Window.Height),
			X:      int(p.Window.X),
			Y:      int(p.Window.Y),
		}.String())
	}

	if p.Pad != (geometry.Point{}) || p.Window.Width != p.Canvas.Width || p.Window.Height != p.Canvas.Height {
		filters = append(filters, PadFilter{
			Width:  int(p.Canvas.Width),
			Height: int(p.Canvas.Height),
			X:      int(p.Pad.X),
			Y:      int(p.Pad.Y),
		}.String())
	}

	filters = append(filters, "setsar=1")
	if fps > 0 {
		filters = append(filters, fmt.Sprintf("fps=%d", fps))
	}

	return strings.Join(filters, ",")
}
