package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaexport/internal/bootstrap"
	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/options"
)

// transformOutput is what the transform command prints.
type transformOutput struct {
	Source      *media.Info        `json:"source,omitempty"`
	Plan        geometry.Plan      `json:"plan"`
	Placement   geometry.Placement `json:"placement"`
	FilterGraph string             `json:"filter_graph"`
}

func newTransformCmd(a *app) *cobra.Command {
	var (
		resize   resizeFlags
		width    float64
		height   float64
		rotation float64
		file     string
		fps      int
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Print the export plan for a frame size or a media file as JSON",
		Example: `  mediaexport transform --width 1920 --height 1080 --rotation -90 --mode aspect_fill --size 1080x1080
  mediaexport transform --file clip.mov --preset wall-video`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := bootstrap.NewPresets(a.cfg, a.logger)
			if err != nil {
				return err
			}
			opts, err := resize.options(presets)
			if err != nil {
				return err
			}

			out := transformOutput{}
			if file != "" {
				exporter := bootstrap.NewExporter(a.cfg, library.NewLocalLibrary(filepath.Dir(file)), a.cfg.TempDir, a.logger)
				plan, info, err := exporter.Plan(cmd.Context(), file, library.KindOf(file) == library.KindImage, opts...)
				if err != nil {
					return err
				}
				out.Source = &info
				out.Plan = plan
			} else {
				if width <= 0 || height <= 0 {
					return fmt.Errorf("%w: --width and --height, or --file, are required", geometry.ErrInvalidSize)
				}
				raw := geometry.Size{Width: width, Height: height}
				settings := options.Resolve(nil, opts...)
				plan, err := geometry.ComputeTransform(raw, media.MatrixForRotation(raw, rotation), settings.Crop, settings.ResizeMode)
				if err != nil {
					return err
				}
				out.Plan = plan
			}

			if out.Placement, err = out.Plan.PlacementOf(); err != nil {
				return err
			}
			out.FilterGraph = media.FilterGraph(out.Placement, fps)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	resize.register(cmd)
	cmd.Flags().Float64Var(&width, "width", 0, "Stored frame width")
	cmd.Flags().Float64Var(&height, "height", 0, "Stored frame height")
	cmd.Flags().Float64Var(&rotation, "rotation", 0, "Display rotation in degrees counter-clockwise, as ffprobe reports it")
	cmd.Flags().StringVar(&file, "file", "", "Probe this file instead of using --width/--height/--rotation")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frame rate appended to the filter graph; 0 keeps the source rate")
	cmd.MarkFlagsMutuallyExclusive("file", "width")
	cmd.MarkFlagsMutuallyExclusive("file", "rotation")
	return cmd
}
