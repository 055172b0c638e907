package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/job"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/options"
)

// maxBodyBytes bounds request bodies; every request is a small JSON document.
const maxBodyBytes = 1 << 20

// ExportService is the job API the handlers drive. *job.ExportService
// implements it.
type ExportService interface {
	Submit(ctx context.Context, in job.Input) (*job.Job, error)
	Get(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context) ([]*job.Job, error)
	Cancel(ctx context.Context, id string) error
	DeleteOutput(ctx context.Context, id string) error
}

var _ ExportService = (*job.ExportService)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   ExportService
	presets   *options.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. A nil registry serves the
// builtin presets.
func NewHandlers(service ExportService, presets *options.Registry, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if presets == nil {
		presets = options.NewRegistry(options.BuiltinPresets()...)
	}
	return &Handlers{
		service:   service,
		presets:   presets,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListPresets handles GET /presets requests.
func (h *Handlers) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: h.presets.All()})
}

// ComputeTransform handles POST /transforms requests. It runs the geometry
// pipeline only; no media is touched.
func (h *Handlers) ComputeTransform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if !h.decode(w, r, &req) {
		return
	}

	mode, err := h.resizeMode(req.Preset, req.Mode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	raw := geometry.Size{Width: req.Width, Height: req.Height}
	metadata := geometry.Identity
	switch {
	case req.Rotation != nil:
		metadata = media.MatrixForRotation(raw, *req.Rotation)
	case req.Metadata != nil:
		metadata = *req.Metadata
	}

	plan, err := geometry.ComputeTransform(raw, metadata, cropOf(req.Crop), mode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	placement, err := plan.PlacementOf()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransformResponse{
		Orientation: plan.Orientation.String(),
		NaturalSize: plan.NaturalSize,
		RenderSize:  plan.RenderSize,
		CropOffset:  plan.Transformation.CropOffset,
		Scale:       plan.Transformation.Scale,
		Transform:   plan.Transform,
		Placement:   placement,
		FilterGraph: media.FilterGraph(placement, 0),
	})
}

// CreateExport handles POST /exports requests.
func (h *Handlers) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req CreateExportRequest
	if !h.decode(w, r, &req) {
		return
	}

	opts, err := h.exportOptions(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	created, err := h.service.Submit(r.Context(), job.Input{
		Kind:    job.Kind(req.Kind),
		AssetID: req.AssetID,
		Preset:  req.Preset,
		Options: opts,
		Publish: req.Publish,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.logger.Info("export created",
		slog.String("job_id", created.ID),
		slog.String("kind", req.Kind),
		slog.String("asset_id", req.AssetID),
	)

	writeJSON(w, http.StatusAccepted, CreateExportResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// ListExports handles GET /exports requests.
func (h *Handlers) ListExports(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := ExportListResponse{Exports: make([]ExportResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Exports = append(resp.Exports, exportResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetExport handles GET /exports/{id} requests.
func (h *Handlers) GetExport(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, exportResponse(found))
}

// DownloadExport handles GET /exports/{id}/file requests by serving the
// rendered file of a completed job.
func (h *Handlers) DownloadExport(w http.ResponseWriter, r *http.Request) {
	found, ok := h.findJob(w, r)
	if !ok {
		return
	}
	if found.Status != job.StatusCompleted || found.OutputPath == "" {
		writeError(w, http.StatusConflict, "export is not completed", "EXPORT_NOT_COMPLETED")
		return
	}
	http.ServeFile(w, r, found.OutputPath)
}

// CancelExport handles DELETE /exports/{id} requests.
func (h *Handlers) CancelExport(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := h.service.Cancel(r.Context(), jobID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.logger.Info("export cancel requested", slog.String("job_id", jobID))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteExportFile handles DELETE /exports/{id}/file requests by removing
// the rendered file of a finished job.
func (h *Handlers) DeleteExportFile(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "export ID is required", "MISSING_EXPORT_ID")
		return
	}
	if err := h.service.DeleteOutput(r.Context(), jobID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) findJob(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "export ID is required", "MISSING_EXPORT_ID")
		return nil, false
	}
	found, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		h.writeDomainError(w, err)
		return nil, false
	}
	return found, true
}

// decode reads and validates a JSON body into dst. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// errValidation marks request errors found after struct validation.
var errValidation = errors.New("validation failed")

// resizeMode picks the explicit mode, falling back to the preset's.
func (h *Handlers) resizeMode(preset string, req *ResizeModeRequest) (geometry.ResizeMode, error) {
	if req != nil {
		if req.Name != options.ModeAspectRatioBestFill && (req.Width <= 0 || req.Height <= 0) {
			return nil, fmt.Errorf("%w: %s needs a positive width and height", errValidation, req.Name)
		}
		return options.ParseResizeMode(req.Name, geometry.Size{Width: req.Width, Height: req.Height}, req.Limits)
	}
	if preset == "" {
		return nil, fmt.Errorf("%w: either preset or mode is required", errValidation)
	}
	p, err := h.presets.Lookup(preset)
	if err != nil {
		return nil, err
	}
	return p.ResizeMode()
}

// exportOptions turns a request into settings options. Preset options come
// first so explicit fields override them.
func (h *Handlers) exportOptions(req CreateExportRequest) ([]options.Option, error) {
	var opts []options.Option
	if req.Preset != "" {
		p, err := h.presets.Lookup(req.Preset)
		if err != nil {
			return nil, err
		}
		presetOpts, err := p.Options()
		if err != nil {
			return nil, err
		}
		opts = append(opts, presetOpts...)
	}

	if req.Mode != nil || req.Preset == "" {
		mode, err := h.resizeMode("", req.Mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, options.WithResizeMode(mode))
	}

	if req.Crop != nil {
		crop := cropOf(req.Crop)
		if err := crop.Validate(); err != nil {
			return nil, err
		}
		opts = append(opts, options.WithCrop(crop))
	}
	if req.Trim != nil {
		opts = append(opts, options.WithTrim(options.TimeRange{
			Start:    seconds(req.Trim.Start),
			Duration: seconds(req.Trim.Duration),
		}))
	}
	if req.FramesPerSecond > 0 {
		opts = append(opts, options.WithFramesPerSecond(req.FramesPerSecond))
	}
	if req.Container != "" {
		c, err := options.ParseContainer(req.Container)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errValidation, err)
		}
		if c.IsImage() != (job.Kind(req.Kind) == job.KindImage) {
			return nil, fmt.Errorf("%w: %s cannot hold a %s export", media.ErrUnsupportedContainer, c, req.Kind)
		}
		opts = append(opts, options.WithContainer(c))
	}
	if req.Quality != "" {
		q, err := options.ParseQuality(req.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errValidation, err)
		}
		opts = append(opts, options.WithQuality(q))
	}
	if req.OptimizeForNetwork != nil {
		opts = append(opts, options.WithOptimizeForNetwork(*req.OptimizeForNetwork))
	}
	return opts, nil
}

func cropOf(c *CropRequest) geometry.Crop {
	if c == nil {
		return geometry.ZeroCrop
	}
	return geometry.Crop{Top: c.Top, Left: c.Left, Bottom: c.Bottom, Right: c.Right}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func exportResponse(j *job.Job) ExportResponse {
	return ExportResponse{
		ID:           j.ID,
		Kind:         string(j.Kind),
		AssetID:      j.AssetID,
		Preset:       j.Preset,
		Status:       string(j.Status),
		Error:        j.Error,
		ErrorCode:    j.ErrorCode,
		RenderWidth:  j.RenderWidth,
		RenderHeight: j.RenderHeight,
		OutputPath:   j.OutputPath,
		OutputURL:    j.OutputURL,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}

// writeDomainError maps service and geometry errors to HTTP responses.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, options.ErrUnknownPreset):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_PRESET")
	case errors.Is(err, geometry.ErrInvalidCrop):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CROP")
	case errors.Is(err, geometry.ErrResizeConfiguration):
		writeError(w, http.StatusBadRequest, err.Error(), "RESIZE_CONFIGURATION")
	case errors.Is(err, geometry.ErrInvalidSize):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_SIZE")
	case errors.Is(err, geometry.ErrEmptyPlacement):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "EMPTY_PLACEMENT")
	case errors.Is(err, media.ErrUnsupportedContainer):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_CONTAINER")
	case errors.Is(err, library.ErrInvalidAssetID):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ASSET_ID")
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "export not found", "EXPORT_NOT_FOUND")
	case errors.Is(err, job.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "export already finished", "EXPORT_FINISHED")
	case errors.Is(err, job.ErrJobNotFinished):
		writeError(w, http.StatusConflict, "export has not finished", "EXPORT_NOT_FINISHED")
	case errors.Is(err, job.ErrNoOutput):
		writeError(w, http.StatusGone, "export file is gone", "EXPORT_FILE_GONE")
	case errors.Is(err, job.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "SHUTTING_DOWN")
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
