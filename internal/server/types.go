// Package server provides the HTTP API of the export service: plan
// computation, preset listing and asynchronous export jobs. DTOs here are
// kept apart from the domain types.
package server

import (
	"time"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/options"
)

// ResizeModeRequest selects a resize policy. Width and Height apply to fit
// and fill, Limits to best fill.
type ResizeModeRequest struct {
	Name   string           `json:"name" validate:"required,oneof=aspect_fit aspect_fill aspect_ratio_best_fill"`
	Width  float64          `json:"width" validate:"gte=0,lte=8192"`
	Height float64          `json:"height" validate:"gte=0,lte=8192"`
	Limits *geometry.Limits `json:"limits"`
}

// CropRequest holds per-cent insets from each edge.
type CropRequest struct {
	Top    float64 `json:"top" validate:"gte=0,lt=100"`
	Left   float64 `json:"left" validate:"gte=0,lt=100"`
	Bottom float64 `json:"bottom" validate:"gte=0,lt=100"`
	Right  float64 `json:"right" validate:"gte=0,lt=100"`
}

// TrimRequest selects a time range in seconds. A zero duration runs to the
// end of the asset.
type TrimRequest struct {
	Start    float64 `json:"start" validate:"gte=0"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

// TransformRequest is the body of POST /transforms. Rotation, in degrees
// counter-clockwise as ffprobe reports it, is an alternative to Metadata.
type TransformRequest struct {
	Width    float64                   `json:"width" validate:"gt=0,lte=16384"`
	Height   float64                   `json:"height" validate:"gt=0,lte=16384"`
	Metadata *geometry.AffineTransform `json:"metadata"`
	Rotation *float64                  `json:"rotation"`
	Crop     *CropRequest              `json:"crop"`
	Preset   string                    `json:"preset"`
	Mode     *ResizeModeRequest        `json:"mode"`
}

// TransformResponse is the computed plan.
type TransformResponse struct {
	Orientation string                   `json:"orientation"`
	NaturalSize geometry.Size            `json:"natural_size"`
	RenderSize  geometry.Size            `json:"render_size"`
	CropOffset  geometry.Point           `json:"crop_offset"`
	Scale       geometry.Point           `json:"scale"`
	Transform   geometry.AffineTransform `json:"transform"`
	Placement   geometry.Placement       `json:"placement"`
	FilterGraph string                   `json:"filter_graph"`
}

// CreateExportRequest is the body of POST /exports. Either Preset or Mode
// must be set; Mode overrides the preset's resize mode.
type CreateExportRequest struct {
	Kind               string             `json:"kind" validate:"required,oneof=video image"`
	AssetID            string             `json:"asset_id" validate:"required,max=1024"`
	Preset             string             `json:"preset" validate:"max=64"`
	Mode               *ResizeModeRequest `json:"mode"`
	Crop               *CropRequest       `json:"crop"`
	Trim               *TrimRequest       `json:"trim"`
	FramesPerSecond    int                `json:"fps" validate:"gte=0,lte=120"`
	Container          string             `json:"container" validate:"omitempty,oneof=mp4 mov m4v jpeg jpg png webp"`
	Quality            string             `json:"quality" validate:"omitempty,oneof=highest medium low"`
	OptimizeForNetwork *bool              `json:"optimize_for_network"`
	Publish            bool               `json:"publish"`
}

// CreateExportResponse is returned with 202 Accepted.
type CreateExportResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExportResponse describes an export job.
type ExportResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	AssetID      string    `json:"asset_id"`
	Preset       string    `json:"preset,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	RenderWidth  int       `json:"render_width,omitempty"`
	RenderHeight int       `json:"render_height,omitempty"`
	OutputPath   string    `json:"output_path,omitempty"`
	OutputURL    string    `json:"output_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
}

// ExportListResponse is the body of GET /exports.
type ExportListResponse struct {
	Exports []ExportResponse `json:"exports"`
}

// PresetsResponse is the body of GET /presets.
type PresetsResponse struct {
	Presets []options.Preset `json:"presets"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
