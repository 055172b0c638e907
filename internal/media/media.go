// Package media provides the compositing and probing adapters of the export
// pipeline. Compositors render a source through a precomputed geometry plan;
// probers report the stored frame size, rotation metadata and duration the
// plan is computed from.
package media

import (
	"context"
	"errors"
	"time"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/options"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrNoVideoStream is returned when a source has no decodable video track.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrUnsupportedContainer is returned when a compositor cannot write the
	// requested container.
	ErrUnsupportedContainer = errors.New("container not supported by compositor")
)

// Request is everything a compositor needs to render one output file.
type Request struct {
	Source             string
	Output             string
	Plan               geometry.Plan
	Trim               options.TimeRange
	FramesPerSecond    int
	Container          options.Container
	Quality            options.Quality
	OptimizeForNetwork bool
}

// Compositor renders Source into Output and returns the written path.
type Compositor interface {
	Composite(ctx context.Context, req Request) (string, error)
}

// Info describes the first video track of a source.
type Info struct {
	// Size is the frame size as stored, before any rotation.
	Size geometry.Size `json:"size"`
	// Metadata is the stored display transform.
	Metadata geometry.AffineTransform `json:"metadata"`
	// Duration is zero for still images and unknown durations.
	Duration  time.Duration `json:"duration"`
	FrameRate float64       `json:"frame_rate,omitempty"`
	Codec     string        `json:"codec,omitempty"`
}

// Prober reads Info from a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}
