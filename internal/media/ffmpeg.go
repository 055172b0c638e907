package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/maauso/mediaexport/internal/options"
)

// FFmpegCompositor implements Compositor using the ffmpeg CLI.
type FFmpegCompositor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	logger     *slog.Logger
}

// Ensure FFmpegCompositor implements Compositor.
var _ Compositor = (*FFmpegCompositor)(nil)

// NewFFmpegCompositor creates a new FFmpegCompositor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegCompositor(ffmpegPath string, logger *slog.Logger) *FFmpegCompositor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegCompositor{ffmpegPath: ffmpegPath, logger: logger}
}

// Composite renders req.Source through the plan's transform onto a canvas of
// the plan's render size and encodes it as H.264/AAC.
func (c *FFmpegCompositor) Composite(ctx context.Context, req Request) (string, error) {
	args, err := c.buildArgs(req)
	if err != nil {
		return "", err
	}

	c.logger.Debug("running ffmpeg",
		slog.String("source", req.Source),
		slog.String("output", req.Output),
		slog.Any("args", args),
	)

	if err := c.runFFmpeg(ctx, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

func (c *FFmpegCompositor) buildArgs(req Request) ([]string, error) {
	switch req.Container {
	case options.ContainerMP4, options.ContainerMOV, options.ContainerM4V:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, req.Container)
	}

	render := req.Plan.RenderSize
	if render.Width <= 0 || render.Height <= 0 {
		return nil, fmt.Errorf("%w: render %vx%v", ErrInvalidDimensions, render.Width, render.Height)
	}

	placement, err := req.Plan.PlacementOf()
	if err != nil {
		return nil, fmt.Errorf("place frame: %w", err)
	}

	args := []string{
		"-y",            // Overwrite output file without asking
		"-noautorotate", // The plan already carries the rotation
	}
	if req.Trim.Start > 0 {
		args = append(args, "-ss", seconds(req.Trim.Start.Seconds()))
	}
	args = append(args, "-i", req.Source)
	if req.Trim.Bounded() {
		args = append(args, "-t", seconds(req.Trim.Duration.Seconds()))
	}

	args = append(args,
		"-vf", FilterGraph(placement, req.FramesPerSecond),
		"-map_metadata", "-1",
		"-metadata:s:v:0", "rotate=0", // Frames are already upright
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", strconv.Itoa(req.Quality.CRF()),
		"-pix_fmt", pixelFormat(int(render.Width), int(render.Height)),
		"-c:a", "aac",
		"-b:a", "128k",
	)
	if req.OptimizeForNetwork {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, req.Output)

	return args, nil
}

// pixelFormat picks yuv420p when chroma subsampling allows it.
func pixelFormat(w, h int) string {
	if w%2 == 0 && h%2 == 0 {
		return "yuv420p"
	}
	return "yuv444p"
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (c *FFmpegCompositor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
