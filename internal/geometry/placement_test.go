package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTransform_PortraitCaptureToSquare(t *testing.T) {
	raw := Size{Width: 1920, Height: 1080}
	// A +90° capture as stored by phone cameras.
	metadata := AffineTransform{A: 0, B: 1, C: -1, D: 0, Tx: 1080, Ty: 0}

	plan, err := ComputeTransform(raw, metadata, ZeroCrop, AspectFill{Size: Size{Width: 1080, Height: 1080}})
	require.NoError(t, err)

	assert.Equal(t, Up, plan.Orientation)
	assert.Equal(t, Size{Width: 1080, Height: 1920}, plan.NaturalSize)
	assert.Equal(t, Size{Width: 1080, Height: 1080}, plan.RenderSize)
	assert.Equal(t, Point{X: 0, Y: 420}, plan.Transformation.CropOffset)

	placement, err := plan.PlacementOf()
	require.NoError(t, err)

	assert.Equal(t, 1, placement.QuarterTurns)
	assert.Equal(t, Size{Width: 1080, Height: 1920}, placement.ScaledSize)
	assert.Equal(t, Rect{X: 0, Y: 420, Width: 1080, Height: 1080}, placement.Window)
	assert.Equal(t, Point{}, placement.Pad)
	assert.Equal(t, plan.RenderSize, placement.Canvas)
}

func TestComputeTransform_PropagatesComposeErrors(t *testing.T) {
	_, err := ComputeTransform(Size{Width: 10, Height: 10}, Identity, ZeroCrop, None{})
	assert.ErrorIs(t, err, ErrResizeConfiguration)
}

func TestDecompose_UpsideDownPortrait(t *testing.T) {
	raw := Size{Width: 1920, Height: 1080}
	metadata := Translation(0, 1920)

	plan, err := ComputeTransform(raw, metadata, ZeroCrop, AspectFill{Size: Size{Width: 1080, Height: 1920}})
	require.NoError(t, err)
	require.Equal(t, Down, plan.Orientation)

	placement, err := plan.PlacementOf()
	require.NoError(t, err)

	assert.Equal(t, 3, placement.QuarterTurns)
	assert.Equal(t, Rect{Width: 1080, Height: 1920}, placement.Window)
	assert.Equal(t, Point{}, placement.Pad)
}

func TestDecompose_AspectFitPads(t *testing.T) {
	raw := Size{Width: 200, Height: 100}

	plan, err := ComputeTransform(raw, Identity, ZeroCrop, AspectFit{Size: Size{Width: 100, Height: 100}})
	require.NoError(t, err)
	require.Equal(t, Right, plan.Orientation)

	placement, err := plan.PlacementOf()
	require.NoError(t, err)

	assert.Equal(t, 0, placement.QuarterTurns)
	assert.Equal(t, Size{Width: 100, Height: 50}, placement.ScaledSize)
	assert.Equal(t, Rect{Width: 100, Height: 50}, placement.Window)
	assert.Equal(t, Point{X: 0, Y: 25}, placement.Pad)
	assert.False(t, placement.Identity())
}

func TestDecompose_Identity(t *testing.T) {
	raw := Size{Width: 640, Height: 480}

	placement, err := Decompose(raw, Identity, raw)
	require.NoError(t, err)
	assert.True(t, placement.Identity())
}

func TestDecompose_Errors(t *testing.T) {
	raw := Size{Width: 10, Height: 10}

	_, err := Decompose(raw, Translation(1000, 1000), raw)
	assert.ErrorIs(t, err, ErrEmptyPlacement)

	_, err = Decompose(Size{}, Identity, raw)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Decompose(raw, Identity, Size{Width: 10})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Decompose(raw, Scaling(0, 0), raw)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
