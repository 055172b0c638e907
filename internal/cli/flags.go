package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/options"
)

var errNoResizeMode = errors.New("either --preset or --mode is required")

// resizeFlags are the geometry flags shared by transform and export.
type resizeFlags struct {
	preset string
	mode   string
	size   string
	limits geometry.Limits
	crop   string
}

func (f *resizeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.preset, "preset", "", "Named preset (see GET /presets); --mode overrides its resize mode")
	fs.StringVar(&f.mode, "mode", "", "Resize mode: aspect_fit, aspect_fill or aspect_ratio_best_fill")
	fs.StringVar(&f.size, "size", "", "Target size WIDTHxHEIGHT for aspect_fit and aspect_fill")
	fs.Float64Var(&f.limits.MinWidth, "min-width", 320, "Best fill: minimum width")
	fs.Float64Var(&f.limits.MaxWidth, "max-width", 1080, "Best fill: maximum width")
	fs.Float64Var(&f.limits.MinAspectRatio, "min-ratio", 1/1.91, "Best fill: minimum height/width ratio")
	fs.Float64Var(&f.limits.MaxAspectRatio, "max-ratio", 1.25, "Best fill: maximum height/width ratio")
	fs.StringVar(&f.crop, "crop", "", "Crop insets in per cent: TOP,LEFT,BOTTOM,RIGHT")
}

// options turns the flags into settings options, preset first.
func (f *resizeFlags) options(presets *options.Registry) ([]options.Option, error) {
	var opts []options.Option

	if f.preset != "" {
		p, err := presets.Lookup(f.preset)
		if err != nil {
			return nil, err
		}
		presetOpts, err := p.Options()
		if err != nil {
			return nil, err
		}
		opts = append(opts, presetOpts...)
	}

	switch {
	case f.mode != "":
		var size geometry.Size
		if f.mode != options.ModeAspectRatioBestFill {
			var err error
			if size, err = parseSize(f.size); err != nil {
				return nil, err
			}
		}
		limits := f.limits
		mode, err := options.ParseResizeMode(f.mode, size, &limits)
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithResizeMode(mode))
	case f.preset == "":
		return nil, errNoResizeMode
	}

	if f.crop != "" {
		crop, err := parseCrop(f.crop)
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithCrop(crop))
	}
	return opts, nil
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (geometry.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return geometry.Size{}, fmt.Errorf("%w: size %q is not WIDTHxHEIGHT", geometry.ErrInvalidSize, s)
	}
	width, errW := strconv.ParseFloat(w, 64)
	height, errH := strconv.ParseFloat(h, 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return geometry.Size{}, fmt.Errorf("%w: size %q", geometry.ErrInvalidSize, s)
	}
	return geometry.Size{Width: width, Height: height}, nil
}

// parseCrop parses "TOP,LEFT,BOTTOM,RIGHT" per-cent insets.
func parseCrop(s string) (geometry.Crop, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Crop{}, fmt.Errorf("%w: %q is not TOP,LEFT,BOTTOM,RIGHT", geometry.ErrInvalidCrop, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Crop{}, fmt.Errorf("%w: %q", geometry.ErrInvalidCrop, s)
		}
		v[i] = f
	}
	crop := geometry.Crop{Top: v[0], Left: v[1], Bottom: v[2], Right: v[3]}
	if err := crop.Validate(); err != nil {
		return geometry.Crop{}, err
	}
	return crop, nil
}
