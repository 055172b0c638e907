// Package geometry computes the crop, resize and rotation parameters of an
// export: it classifies a frame's stored rotation, derives the crop offsets,
// scale and render size for a resize mode, and builds the affine transform a
// compositor applies to every frame.
//
// Everything here is pure and synchronous.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is an x/y pair. It is used for crop offsets and scale factors.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Orientation is the canonical upright-rotation class of a frame.
type Orientation int

const (
	// Up is the fallback class; it covers the usual portrait capture (+90°).
	Up Orientation = iota
	// Down is an upside-down portrait capture (-90°).
	Down
	// Left is a landscape capture rotated by 180°.
	Left
	// Right is a landscape capture stored upright (identity transform).
	Right
)

var orientationNames = [...]string{"up", "down", "left", "right"}

// String returns the lowercase name of the orientation.
func (o Orientation) String() string {
	if o < Up || o > Right {
		return fmt.Sprintf("orientation(%d)", int(o))
	}
	return orientationNames[o]
}

// ParseOrientation parses a lowercase orientation name.
func ParseOrientation(s string) (Orientation, error) {
	for i, name := range orientationNames {
		if strings.EqualFold(s, name) {
			return Orientation(i), nil
		}
	}
	return Up, fmt.Errorf("unknown orientation %q", s)
}

// MarshalJSON encodes the orientation by name.
func (o Orientation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an orientation name.
func (o *Orientation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOrientation(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ResolveOrientation classifies the stored rotation metadata of a frame of
// the given raw (unrotated) size. Only the translation part of the metadata
// is inspected and the first matching rule wins, so the order below breaks
// ties for degenerate inputs such as square frames.
func ResolveOrientation(raw Size, metadata AffineTransform) Orientation {
	tx, ty := metadata.Tx, metadata.Ty

	if tx == raw.Width && ty == raw.Height {
		return Left
	}
	if tx == 0 && ty == 0 {
		return Right
	}
	if tx == 0 && ty == raw.Width {
		return Down
	}
	return Up
}

// NaturalSize returns the visually upright dimensions of a raw frame.
// Portrait classes get width=min, height=max; landscape classes keep raw.
func NaturalSize(raw Size, o Orientation) Size {
	switch o {
	case Up, Down:
		return Size{
			Width:  math.Min(raw.Width, raw.Height),
			Height: math.Max(raw.Width, raw.Height),
		}
	default:
		return raw
	}
}
