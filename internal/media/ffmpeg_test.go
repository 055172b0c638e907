package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/options"
)

// skipIfNoFFmpeg skips the test if ffmpeg or ffprobe is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestVideo creates a short solid color video with silent audio.
func createTestVideo(t *testing.T, path string, width, height int, duration float64) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=blue:s=%dx%d:d=%.1f:r=30", width, height, duration),
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=44100:cl=mono:d=%.1f", duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func squarePlan(t *testing.T, raw geometry.Size, side float64) geometry.Plan {
	t.Helper()
	plan, err := geometry.ComputeTransform(raw, geometry.Identity, geometry.ZeroCrop,
		geometry.AspectFill{Size: geometry.Size{Width: side, Height: side}})
	require.NoError(t, err)
	return plan
}

func argValue(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

func TestFFmpegCompositor_BuildArgs(t *testing.T) {
	c := NewFFmpegCompositor("", nil)

	req := Request{
		Source:             "/in/clip.mp4",
		Output:             "/out/clip.mp4",
		Plan:               squarePlan(t, geometry.Size{Width: 320, Height: 240}, 120),
		Trim:               options.TimeRange{Start: 1500 * time.Millisecond, Duration: 2 * time.Second},
		FramesPerSecond:    25,
		Container:          options.ContainerMP4,
		Quality:            options.QualityMedium,
		OptimizeForNetwork: true,
	}

	args, err := c.buildArgs(req)
	require.NoError(t, err)

	assert.Contains(t, args, "-noautorotate")
	assert.Equal(t, "/out/clip.mp4", args[len(args)-1])

	v, ok := argValue(args, "-ss")
	require.True(t, ok)
	assert.Equal(t, "1.500", v)

	v, ok = argValue(args, "-t")
	require.True(t, ok)
	assert.Equal(t, "2.000", v)

	v, _ = argValue(args, "-crf")
	assert.Equal(t, "23", v)

	v, _ = argValue(args, "-movflags")
	assert.Equal(t, "+faststart", v)

	v, _ = argValue(args, "-vf")
	assert.Equal(t, "scale=160:120,crop=120:120:20:0,setsar=1,fps=25", v)

	// -ss seeks the input, -t bounds the output.
	assert.Less(t, slices.Index(args, "-ss"), slices.Index(args, "-i"))
	assert.Greater(t, slices.Index(args, "-t"), slices.Index(args, "-i"))
}

func TestFFmpegCompositor_BuildArgsDefaults(t *testing.T) {
	c := NewFFmpegCompositor("", nil)

	args, err := c.buildArgs(Request{
		Source:    "in.mov",
		Output:    "out.mov",
		Plan:      squarePlan(t, geometry.Size{Width: 100, Height: 100}, 100),
		Container: options.ContainerMOV,
		Quality:   options.QualityHighest,
	})
	require.NoError(t, err)

	assert.NotContains(t, args, "-ss")
	assert.NotContains(t, args, "-t")
	assert.NotContains(t, args, "-movflags")

	v, _ := argValue(args, "-crf")
	assert.Equal(t, "18", v)
	v, _ = argValue(args, "-pix_fmt")
	assert.Equal(t, "yuv420p", v)
}

func TestFFmpegCompositor_BuildArgsErrors(t *testing.T) {
	c := NewFFmpegCompositor("", nil)

	_, err := c.buildArgs(Request{Container: options.ContainerPNG})
	assert.ErrorIs(t, err, ErrUnsupportedContainer)

	_, err = c.buildArgs(Request{Container: options.ContainerMP4})
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestPixelFormat(t *testing.T) {
	assert.Equal(t, "yuv420p", pixelFormat(640, 360))
	assert.Equal(t, "yuv444p", pixelFormat(161, 161))
}

func TestFFmpegError(t *testing.T) {
	inner := fmt.Errorf("exit status 1")
	err := &FFmpegError{Args: []string{"-i", "x"}, Stderr: "boom", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "boom")
}

func TestFFmpegCompositor_Composite(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	createTestVideo(t, src, 320, 240, 2)

	ctx := context.Background()
	prober := NewFFprobeProber("")

	info, err := prober.Probe(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 320, Height: 240}, info.Size)
	assert.True(t, info.Metadata.IsIdentity())
	assert.InDelta(t, 2.0, info.Duration.Seconds(), 0.2)

	plan, err := geometry.ComputeTransform(info.Size, info.Metadata, geometry.ZeroCrop,
		geometry.AspectFill{Size: geometry.Size{Width: 120, Height: 120}})
	require.NoError(t, err)

	out := filepath.Join(dir, "out.mp4")
	path, err := NewFFmpegCompositor("", nil).Composite(ctx, Request{
		Source:             src,
		Output:             out,
		Plan:               plan,
		Trim:               options.TimeRange{Duration: time.Second},
		FramesPerSecond:    30,
		Container:          options.ContainerMP4,
		Quality:            options.QualityLow,
		OptimizeForNetwork: true,
	})
	require.NoError(t, err)
	assert.Equal(t, out, path)

	got, err := NewTrackCheckingProber(prober, nil).Probe(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 120, Height: 120}, got.Size)
	assert.InDelta(t, 1.0, got.Duration.Seconds(), 0.2)
}

func TestFFmpegCompositor_CancelledContext(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "source.mp4")
	createTestVideo(t, src, 64, 64, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFFmpegCompositor("", nil).Composite(ctx, Request{
		Source:    src,
		Output:    filepath.Join(dir, "out.mp4"),
		Plan:      squarePlan(t, geometry.Size{Width: 64, Height: 64}, 32),
		Container: options.ContainerMP4,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
