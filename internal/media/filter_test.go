package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaexport/internal/geometry"
)

func TestTransposeFilter(t *testing.T) {
	tests := []struct {
		turns int
		want  string
	}{
		{0, ""},
		{1, "transpose=1"},
		{2, "transpose=1,transpose=1"},
		{3, "transpose=2"},
		{-1, "transpose=2"},
		{5, "transpose=1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TransposeFilter{QuarterTurns: tt.turns}.String(), "turns %d", tt.turns)
	}
}

func TestFilterGraph_PortraitCapture(t *testing.T) {
	raw := geometry.Size{Width: 1920, Height: 1080}
	metadata := geometry.AffineTransform{A: 0, B: 1, C: -1, D: 0, Tx: 1080, Ty: 0}

	plan, err := geometry.ComputeTransform(raw, metadata, geometry.ZeroCrop,
		geometry.AspectFill{Size: geometry.Size{Width: 1080, Height: 1080}})
	require.NoError(t, err)

	p, err := plan.PlacementOf()
	require.NoError(t, err)

	assert.Equal(t, "transpose=1,scale=1080:1920,crop=1080:1080:0:420,setsar=1,fps=30", FilterGraph(p, 30))
}

func TestFilterGraph_Pad(t *testing.T) {
	p := geometry.Placement{
		ScaledSize: geometry.Size{Width: 100, Height: 50},
		Window:     geometry.Rect{Width: 100, Height: 50},
		Pad:        geometry.Point{X: 0, Y: 25},
		Canvas:     geometry.Size{Width: 100, Height: 100},
	}

	assert.Equal(t, "scale=100:50,pad=100:100:0:25:black,setsar=1", FilterGraph(p, 0))
}

func TestFilterGraph_Identity(t *testing.T) {
	size := geometry.Size{Width: 640, Height: 480}
	p := geometry.Placement{
		ScaledSize: size,
		Window:     geometry.Rect{Width: 640, Height: 480},
		Canvas:     size,
	}

	assert.Equal(t, "scale=640:480,setsar=1,fps=24", FilterGraph(p, 24))
}
