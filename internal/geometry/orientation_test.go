package geometry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrientation(t *testing.T) {
	raw := Size{Width: 1080, Height: 1920}

	tests := []struct {
		name string
		tx   float64
		ty   float64
		want Orientation
	}{
		{"translation equals raw size", 1080, 1920, Left},
		{"zero translation", 0, 0, Right},
		{"translation equals raw width on y", 0, 1080, Down},
		{"translation on x only", 1080, 0, Up},
		{"arbitrary translation", 12, 34, Up},
		{"height on y only", 0, 1920, Up},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata := AffineTransform{A: 1, D: 1, Tx: tt.tx, Ty: tt.ty}
			assert.Equal(t, tt.want, ResolveOrientation(raw, metadata))
		})
	}
}

func TestResolveOrientation_FirstMatchWins(t *testing.T) {
	// A zero-sized frame matches every rule; the first one decides.
	assert.Equal(t, Left, ResolveOrientation(Size{}, Identity))

	// Square frames cannot tell Left from Down when ty equals the side.
	square := Size{Width: 500, Height: 500}
	assert.Equal(t, Left, ResolveOrientation(square, Translation(500, 500)))
	assert.Equal(t, Down, ResolveOrientation(square, Translation(0, 500)))
}

func TestNaturalSize(t *testing.T) {
	sizes := []Size{
		{Width: 1920, Height: 1080},
		{Width: 1080, Height: 1920},
		{Width: 640, Height: 640},
		{Width: 1, Height: 3},
	}

	for _, raw := range sizes {
		for _, o := range []Orientation{Up, Down} {
			got := NaturalSize(raw, o)
			assert.Equal(t, Size{
				Width:  min(raw.Width, raw.Height),
				Height: max(raw.Width, raw.Height),
			}, got, "%s %v", o, raw)
		}
		for _, o := range []Orientation{Left, Right} {
			assert.Equal(t, raw, NaturalSize(raw, o), "%s %v", o, raw)
		}
	}
}

func TestOrientation_String(t *testing.T) {
	assert.Equal(t, "up", Up.String())
	assert.Equal(t, "down", Down.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "orientation(7)", Orientation(7).String())
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("Left")
	require.NoError(t, err)
	assert.Equal(t, Left, o)

	_, err = ParseOrientation("sideways")
	assert.Error(t, err)
}

func TestOrientation_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		O Orientation `json:"o"`
	}{O: Down})
	require.NoError(t, err)
	assert.JSONEq(t, `{"o":"down"}`, string(data))

	var decoded struct {
		O Orientation `json:"o"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"o":"right"}`), &decoded))
	assert.Equal(t, Right, decoded.O)

	assert.Error(t, json.Unmarshal([]byte(`{"o":"nope"}`), &decoded))
}
