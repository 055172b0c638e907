package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/maauso/mediaexport/internal/geometry"
)

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// Ensure FFprobeProber implements Prober.
var _ Prober = (*FFprobeProber)(nil)

// NewFFprobeProber creates a new FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
	SideDataList []struct {
		SideDataType  string  `json:"side_data_type"`
		DisplayMatrix string  `json:"displaymatrix"`
		Rotation      float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// Probe returns the first video stream's stored size, display matrix and
// duration.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (Info, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Info{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (Info, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range parsed.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return Info{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, s.Width, s.Height)
		}

		size := geometry.Size{Width: float64(s.Width), Height: float64(s.Height)}
		info := Info{
			Size:      size,
			Metadata:  geometry.Identity,
			FrameRate: parseRate(s.AvgFrameRate),
			Codec:     s.CodecName,
			Duration:  parseSeconds(s.Duration),
		}
		if info.Duration == 0 {
			info.Duration = parseSeconds(parsed.Format.Duration)
		}

		for _, sd := range s.SideDataList {
			if sd.SideDataType != "Display Matrix" {
				continue
			}
			if m, err := ParseDisplayMatrix(sd.DisplayMatrix); err == nil {
				info.Metadata = withTranslation(size, m)
			} else {
				info.Metadata = MatrixForRotation(size, sd.Rotation)
			}
		}
		return info, nil
	}

	return Info{}, ErrNoVideoStream
}

// ParseDisplayMatrix parses ffprobe's textual display matrix:
//
//	00000000:            0       65536           0
//	00000001:       -65536           0           0
//	00000002:     70778880           0  1073741824
//
// Rows are [a b u; c d v; tx ty w] with a..d and tx, ty in 16.16 fixed point.
func ParseDisplayMatrix(s string) (geometry.AffineTransform, error) {
	var values []float64
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		_, row, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		for _, field := range strings.Fields(row) {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return geometry.AffineTransform{}, fmt.Errorf("parse display matrix %q: %w", field, err)
			}
			values = append(values, float64(v))
		}
	}
	if len(values) != 9 {
		return geometry.AffineTransform{}, fmt.Errorf("parse display matrix: want 9 values, got %d", len(values))
	}

	const fixed = 1 << 16
	return geometry.AffineTransform{
		A:  values[0] / fixed,
		B:  values[1] / fixed,
		C:  values[3] / fixed,
		D:  values[4] / fixed,
		Tx: values[6] / fixed,
		Ty: values[7] / fixed,
	}, nil
}

// MatrixForRotation builds the display transform a camera would store for a
// frame of the given size shown rotated by rotation degrees counter-clockwise,
// which is how ffprobe reports it.
func MatrixForRotation(size geometry.Size, rotation float64) geometry.AffineTransform {
	turns := ((int(math.Round(-rotation/90)) % 4) + 4) % 4
	switch turns {
	case 1:
		return geometry.QuarterRotation(1).Concat(geometry.Translation(size.Height, 0))
	case 2:
		return geometry.QuarterRotation(2).Concat(geometry.Translation(size.Width, size.Height))
	case 3:
		return geometry.QuarterRotation(3).Concat(geometry.Translation(0, size.Width))
	default:
		return geometry.Identity
	}
}

// withTranslation restores the translation of a rotated display matrix.
// Demuxers often drop it and keep the rotation only.
func withTranslation(size geometry.Size, m geometry.AffineTransform) geometry.AffineTransform {
	if m.Tx != 0 || m.Ty != 0 || (m.A == 1 && m.B == 0 && m.C == 0 && m.D == 1) {
		return m
	}
	clockwise := math.Atan2(m.B, m.A) * 180 / math.Pi
	return MatrixForRotation(size, -clockwise)
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
