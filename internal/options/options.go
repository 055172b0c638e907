// Package options resolves export settings from ordered functional options.
// Options are applied in order, so the last option of a kind wins. Fields no
// option touches keep the documented defaults from NewSettings.
package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/job/id"
)

// Static errors for option values.
var (
	// ErrUnknownContainer is returned for an unsupported output container.
	ErrUnknownContainer = errors.New("unknown output container")
	// ErrUnknownQuality is returned for an unsupported quality level.
	ErrUnknownQuality = errors.New("unknown quality")
	// ErrEmptyTrim is returned when a trim range does not overlap the asset.
	ErrEmptyTrim = errors.New("trim range does not overlap the asset")
)

// Container is an output file type.
type Container string

// Supported containers.
const (
	ContainerMP4  Container = "mp4"
	ContainerMOV  Container = "mov"
	ContainerM4V  Container = "m4v"
	ContainerJPEG Container = "jpeg"
	ContainerPNG  Container = "png"
	ContainerWebP Container = "webp"
)

var containerExtensions = map[Container]string{
	ContainerMP4:  ".mp4",
	ContainerMOV:  ".mov",
	ContainerM4V:  ".m4v",
	ContainerJPEG: ".jpg",
	ContainerPNG:  ".png",
	ContainerWebP: ".webp",
}

// ParseContainer parses a container name. "jpg" is accepted for jpeg.
func ParseContainer(s string) (Container, error) {
	c := Container(strings.ToLower(strings.TrimPrefix(s, ".")))
	if c == "jpg" {
		c = ContainerJPEG
	}
	if _, ok := containerExtensions[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContainer, s)
	}
	return c, nil
}

// Extension returns the file extension including the dot.
func (c Container) Extension() string {
	return containerExtensions[c]
}

// IsImage reports whether the container holds a still image.
func (c Container) IsImage() bool {
	return c == ContainerJPEG || c == ContainerPNG || c == ContainerWebP
}

// Quality is an encoder quality level.
type Quality string

// Supported quality levels.
const (
	QualityHighest Quality = "highest"
	QualityMedium  Quality = "medium"
	QualityLow     Quality = "low"
)

// ParseQuality parses a quality name.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(s)); q {
	case QualityHighest, QualityMedium, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

// CRF returns the x264 constant rate factor for the quality.
func (q Quality) CRF() int {
	switch q {
	case QualityLow:
		return 28
	case QualityMedium:
		return 23
	default:
		return 18
	}
}

// ImageQuality returns an image encoder quality in [1,100].
func (q Quality) ImageQuality() int {
	switch q {
	case QualityLow:
		return 50
	case QualityMedium:
		return 75
	default:
		return 95
	}
}

// TimeRange selects part of an asset. A non-positive Duration runs to the end.
type TimeRange struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
}

// FullRange is the default trim: the whole asset.
var FullRange = TimeRange{}

// Bounded reports whether the range has an explicit end.
func (r TimeRange) Bounded() bool {
	return r.Duration > 0
}

// Intersect clamps r to an asset of the given total duration. A non-positive
// total means the duration is unknown and r is returned unchanged.
func (r TimeRange) Intersect(total time.Duration) (TimeRange, error) {
	if total <= 0 {
		return r, nil
	}
	start := max(r.Start, 0)
	if start >= total {
		return TimeRange{}, fmt.Errorf("%w: start %s, asset %s", ErrEmptyTrim, r.Start, total)
	}
	end := total
	if r.Bounded() {
		end = min(start+r.Duration, total)
	}
	return TimeRange{Start: start, Duration: end - start}, nil
}

// Settings is the resolved configuration of one export.
type Settings struct {
	ResizeMode              geometry.ResizeMode
	Crop                    geometry.Crop
	Trim                    TimeRange
	FramesPerSecond         int
	Container               Container
	Quality                 Quality
	OptimizeForNetwork      bool
	ResultDir               string
	ResultFilename          string
	ResizedSuffix           string
	AddTargetSizeToFilename bool
}

// NewSettings returns the defaults. ResultFilename is freshly generated on
// every call.
func NewSettings() Settings {
	return Settings{
		ResizeMode:              geometry.None{},
		Crop:                    geometry.ZeroCrop,
		Trim:                    FullRange,
		FramesPerSecond:         30,
		Container:               ContainerMP4,
		Quality:                 QualityHighest,
		OptimizeForNetwork:      true,
		ResultDir:               os.TempDir(),
		ResultFilename:          id.Filename(),
		ResizedSuffix:           "_resized",
		AddTargetSizeToFilename: true,
	}
}

// Option mutates Settings.
type Option func(*Settings)

// Resolve applies manager-wide defaults, then per-request options, on top of
// NewSettings.
func Resolve(defaults []Option, opts ...Option) Settings {
	s := NewSettings()
	for _, opt := range defaults {
		if opt != nil {
			opt(&s)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithResizeMode sets the resize policy.
func WithResizeMode(m geometry.ResizeMode) Option {
	return func(s *Settings) { s.ResizeMode = m }
}

// WithCrop sets the per-cent crop insets.
func WithCrop(c geometry.Crop) Option {
	return func(s *Settings) { s.Crop = c }
}

// WithTrim limits the exported time range.
func WithTrim(r TimeRange) Option {
	return func(s *Settings) { s.Trim = r }
}

// WithFramesPerSecond sets the output frame rate.
func WithFramesPerSecond(fps int) Option {
	return func(s *Settings) { s.FramesPerSecond = fps }
}

// WithContainer sets the output container.
func WithContainer(c Container) Option {
	return func(s *Settings) { s.Container = c }
}

// WithQuality sets the encoder quality.
func WithQuality(q Quality) Option {
	return func(s *Settings) { s.Quality = q }
}

// WithOptimizeForNetwork toggles moving the index to the front of the file.
func WithOptimizeForNetwork(enabled bool) Option {
	return func(s *Settings) { s.OptimizeForNetwork = enabled }
}

// WithResultDir sets where exported originals are written.
func WithResultDir(dir string) Option {
	return func(s *Settings) { s.ResultDir = dir }
}

// WithResultFilename sets the base name of the exported original.
func WithResultFilename(name string) Option {
	return func(s *Settings) { s.ResultFilename = name }
}

// WithResizedSuffix sets the marker inserted before the source file name.
func WithResizedSuffix(suffix string) Option {
	return func(s *Settings) { s.ResizedSuffix = suffix }
}

// WithTargetSizeInFilename toggles the "<W>x<H>" file name prefix.
func WithTargetSizeInFilename(enabled bool) Option {
	return func(s *Settings) { s.AddTargetSizeToFilename = enabled }
}

// OriginalPath is where the first export step writes the original resource.
func (s Settings) OriginalPath() string {
	name := s.ResultFilename
	if filepath.Ext(name) == "" {
		name += s.Container.Extension()
	}
	return filepath.Join(s.ResultDir, name)
}

// ResizedFilename names the resized output of source:
// "<W>x<H>" + suffix + base(source), without the size prefix when disabled.
func (s Settings) ResizedFilename(render geometry.Size, source string) string {
	name := s.ResizedSuffix + filepath.Base(source)
	if !s.AddTargetSizeToFilename {
		return name
	}
	return fmt.Sprintf("%dx%d%s", int(render.Width), int(render.Height), name)
}

// ResizedPath places the resized output next to source. The extension
// follows the output container.
func (s Settings) ResizedPath(render geometry.Size, source string) string {
	name := s.ResizedFilename(render, source)
	if ext := s.Container.Extension(); ext != "" && filepath.Ext(name) != ext {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	return filepath.Join(filepath.Dir(source), name)
}
