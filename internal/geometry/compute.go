package geometry

// Plan is everything a compositor needs to render one export.
type Plan struct {
	Orientation    Orientation     `json:"orientation"`
	RawSize        Size            `json:"raw_size"`
	NaturalSize    Size            `json:"natural_size"`
	Transformation Transformation  `json:"transformation"`
	Transform      AffineTransform `json:"transform"`
	RenderSize     Size            `json:"render_size"`
}

// ComputeTransform resolves the orientation of a raw frame, composes the
// crop and resize against its upright size and builds the per-frame
// transform. Errors are those of Compose.
func ComputeTransform(raw Size, metadata AffineTransform, crop Crop, mode ResizeMode) (Plan, error) {
	orientation := ResolveOrientation(raw, metadata)
	natural := NaturalSize(raw, orientation)

	transformation, err := Compose(natural, crop, mode)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Orientation:    orientation,
		RawSize:        raw,
		NaturalSize:    natural,
		Transformation: transformation,
		Transform:      BuildTransform(orientation, raw, transformation.CropOffset, transformation.Scale),
		RenderSize:     transformation.TargetSize,
	}, nil
}
