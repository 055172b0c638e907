package options

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/maauso/mediaexport/internal/geometry"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("unknown preset")

// Resize mode names used by presets and the HTTP API.
const (
	ModeAspectFit           = "aspect_fit"
	ModeAspectFill          = "aspect_fill"
	ModeAspectRatioBestFill = "aspect_ratio_best_fill"
)

// Preset is a named bundle of export settings.
type Preset struct {
	Name            string           `yaml:"name" json:"name" validate:"required,max=64"`
	Description     string           `yaml:"description" json:"description,omitempty"`
	Mode            string           `yaml:"mode" json:"mode" validate:"required,oneof=aspect_fit aspect_fill aspect_ratio_best_fill"`
	Width           float64          `yaml:"width" json:"width,omitempty" validate:"required_unless=Mode aspect_ratio_best_fill,gte=0"`
	Height          float64          `yaml:"height" json:"height,omitempty" validate:"required_unless=Mode aspect_ratio_best_fill,gte=0"`
	Limits          *geometry.Limits `yaml:"limits" json:"limits,omitempty" validate:"required_if=Mode aspect_ratio_best_fill"`
	Container       Container        `yaml:"container" json:"container,omitempty" validate:"omitempty,oneof=mp4 mov m4v jpeg png webp"`
	Quality         Quality          `yaml:"quality" json:"quality,omitempty" validate:"omitempty,oneof=highest medium low"`
	FramesPerSecond int              `yaml:"fps" json:"fps,omitempty" validate:"gte=0,lte=120"`
}

// ResizeMode builds the geometry mode described by the preset.
func (p Preset) ResizeMode() (geometry.ResizeMode, error) {
	return ParseResizeMode(p.Mode, geometry.Size{Width: p.Width, Height: p.Height}, p.Limits)
}

// Options turns the preset into settings options. Zero fields are skipped so
// they keep their defaults.
func (p Preset) Options() ([]Option, error) {
	mode, err := p.ResizeMode()
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	opts := []Option{WithResizeMode(mode)}
	if p.Container != "" {
		opts = append(opts, WithContainer(p.Container))
	}
	if p.Quality != "" {
		opts = append(opts, WithQuality(p.Quality))
	}
	if p.FramesPerSecond > 0 {
		opts = append(opts, WithFramesPerSecond(p.FramesPerSecond))
	}
	return opts, nil
}

// ParseResizeMode maps a mode name and its parameters to a geometry mode.
func ParseResizeMode(name string, size geometry.Size, limits *geometry.Limits) (geometry.ResizeMode, error) {
	switch name {
	case ModeAspectFit:
		return geometry.AspectFit{Size: size}, nil
	case ModeAspectFill:
		return geometry.AspectFill{Size: size}, nil
	case ModeAspectRatioBestFill:
		if limits == nil {
			return nil, fmt.Errorf("%w: %s needs limits", geometry.ErrResizeConfiguration, name)
		}
		return geometry.AspectRatioBestFill{Limits: *limits}, nil
	case "", "none":
		return nil, geometry.ErrResizeConfiguration
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", geometry.ErrResizeConfiguration, name)
	}
}

// wallLimits are the accepted sizes of feed media: landscape down to 1.91:1,
// portrait up to 4:5.
func wallLimits(maxWidth float64) *geometry.Limits {
	return &geometry.Limits{
		MinWidth:       320,
		MaxWidth:       maxWidth,
		MinAspectRatio: 1.0 / 1.91,
		MaxAspectRatio: 5.0 / 4.0,
	}
}

// BuiltinPresets returns the presets shipped with the service.
func BuiltinPresets() []Preset {
	return []Preset{
		{
			Name:        "wall-video",
			Description: "feed video, ratio clamped to [1.91:1, 4:5], width 320-640",
			Mode:        ModeAspectRatioBestFill,
			Limits:      wallLimits(640),
			Container:   ContainerMP4,
			Quality:     QualityMedium,
		},
		{
			Name:        "wall-image",
			Description: "feed image, ratio clamped to [1.91:1, 4:5], width 320-1080",
			Mode:        ModeAspectRatioBestFill,
			Limits:      wallLimits(1080),
			Container:   ContainerJPEG,
			Quality:     QualityMedium,
		},
		{
			Name:        "userpic",
			Description: "161x161 centre-cropped avatar",
			Mode:        ModeAspectFill,
			Width:       161,
			Height:      161,
			Container:   ContainerJPEG,
			Quality:     QualityHighest,
		},
		{
			Name:        "square-video",
			Description: "640x640 centre-cropped video",
			Mode:        ModeAspectFill,
			Width:       640,
			Height:      640,
			Container:   ContainerMP4,
			Quality:     QualityHighest,
		},
	}
}

type presetFile struct {
	Presets []Preset `yaml:"presets" validate:"dive"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func presetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidatePreset checks a preset's fields.
func ValidatePreset(p Preset) error {
	if err := presetValidator().Struct(p); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if _, err := p.ResizeMode(); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return nil
}

// LoadPresets decodes and validates a YAML document of the form
//
//	presets:
//	  - name: banner
//	    mode: aspect_fill
//	    width: 1200
//	    height: 400
func LoadPresets(r io.Reader) ([]Preset, error) {
	var f presetFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for _, p := range f.Presets {
		if err := ValidatePreset(p); err != nil {
			return nil, err
		}
	}
	return f.Presets, nil
}

// LoadPresetsFile reads presets from a YAML file.
func LoadPresetsFile(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()
	return LoadPresets(f)
}

// Registry holds presets by name. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry creates a registry seeded with presets. Later presets replace
// earlier ones with the same name.
func NewRegistry(presets ...Preset) *Registry {
	r := &Registry{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		r.presets[p.Name] = p
	}
	return r
}

// Add registers or replaces presets.
func (r *Registry) Add(presets ...Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range presets {
		r.presets[p.Name] = p
	}
}

// Lookup returns the preset with the given name.
func (r *Registry) Lookup(name string) (Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// All returns every preset sorted by name.
func (r *Registry) All() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered preset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
