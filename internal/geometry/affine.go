package geometry

import "math"

// AffineTransform is a 2×3 matrix in the row-vector convention used by
// CoreGraphics and most media frameworks:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
type AffineTransform struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Tx float64 `json:"tx"`
	Ty float64 `json:"ty"`
}

// Identity is the transform that leaves every point in place.
var Identity = AffineTransform{A: 1, D: 1}

// Translation returns a transform that moves points by (tx, ty).
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, Tx: tx, Ty: ty}
}

// Scaling returns a transform that scales points by (sx, sy).
func Scaling(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Rotation returns a transform rotating by angle radians. With a y-down
// coordinate space a positive angle turns clockwise.
func Rotation(angle float64) AffineTransform {
	sin, cos := math.Sincos(angle)
	return AffineTransform{A: cos, B: sin, C: -sin, D: cos}
}

// QuarterRotation rotates by n quarter turns. The matrix entries are exact,
// which keeps integer geometry integer after concatenation.
func QuarterRotation(n int) AffineTransform {
	switch ((n % 4) + 4) % 4 {
	case 1:
		return AffineTransform{A: 0, B: 1, C: -1, D: 0}
	case 2:
		return AffineTransform{A: -1, B: 0, C: 0, D: -1}
	case 3:
		return AffineTransform{A: 0, B: -1, C: 1, D: 0}
	default:
		return Identity
	}
}

// Concat returns t followed by next: the result maps p to next(t(p)).
func (t AffineTransform) Concat(next AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*next.A + t.B*next.C,
		B:  t.A*next.B + t.B*next.D,
		C:  t.C*next.A + t.D*next.C,
		D:  t.C*next.B + t.D*next.D,
		Tx: t.Tx*next.A + t.Ty*next.C + next.Tx,
		Ty: t.Tx*next.B + t.Ty*next.D + next.Ty,
	}
}

// Apply maps a point through the transform.
func (t AffineTransform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.Tx,
		Y: t.B*p.X + t.D*p.Y + t.Ty,
	}
}

// IsIdentity reports whether t is exactly the identity.
func (t AffineTransform) IsIdentity() bool {
	return t == Identity
}

// ApproxEqual compares two transforms entry by entry within tol.
func (t AffineTransform) ApproxEqual(o AffineTransform, tol float64) bool {
	return math.Abs(t.A-o.A) <= tol &&
		math.Abs(t.B-o.B) <= tol &&
		math.Abs(t.C-o.C) <= tol &&
		math.Abs(t.D-o.D) <= tol &&
		math.Abs(t.Tx-o.Tx) <= tol &&
		math.Abs(t.Ty-o.Ty) <= tol
}

// rotationTable holds the quarter turns and the pre-rotation translation for
// each orientation. The translation is evaluated against the stored frame
// size and the crop offset.
var rotationTable = map[Orientation]struct {
	quarterTurns int
	translate    func(size Size, off Point) (float64, float64)
}{
	Up: {1, func(s Size, off Point) (float64, float64) {
		return s.Height - off.X, -off.Y
	}},
	Down: {-1, func(s Size, off Point) (float64, float64) {
		// The stored width is the upright height of an upside-down frame.
		return -off.X, s.Width - off.Y
	}},
	Left: {2, func(s Size, off Point) (float64, float64) {
		return s.Width - off.X, s.Height - off.Y
	}},
	Right: {0, func(_ Size, off Point) (float64, float64) {
		return -off.X, -off.Y
	}},
}

// BuildTransform builds the per-frame transform for a frame of the given
// stored size: rotate, then translate by the crop offset, then scale. The
// order matters; scaling first would move the crop window.
func BuildTransform(o Orientation, size Size, offset Point, scale Point) AffineTransform {
	entry, ok := rotationTable[o]
	if !ok {
		entry = rotationTable[Up]
	}
	tx, ty := entry.translate(size, offset)

	return QuarterRotation(entry.quarterTurns).
		Concat(Translation(tx, ty)).
		Concat(Scaling(scale.X, scale.Y))
}
