package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maauso/mediaexport/internal/export"
	"github.com/maauso/mediaexport/internal/geometry"
	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
	"github.com/maauso/mediaexport/internal/options"
	"github.com/maauso/mediaexport/internal/storage"
)

var (
	// ErrShuttingDown is returned by Submit after Shutdown was called.
	ErrShuttingDown = errors.New("export service is shutting down")
	// ErrJobNotFinished is returned when an operation needs a terminal job.
	ErrJobNotFinished = errors.New("export job has not finished")
	// ErrNoOutput is returned when a job has no rendered file on disk.
	ErrNoOutput = errors.New("export job has no output file")
)

// Exporter is the export pipeline the service drives. *export.Exporter
// implements it.
type Exporter interface {
	ExportVideo(ctx context.Context, assetID string, complete func(export.Result), opts ...options.Option) (geometry.Plan, error)
	ExportImage(ctx context.Context, assetID string, complete func(export.Result), opts ...options.Option) (geometry.Plan, error)
	// Wait blocks until every compositor call it started has returned.
	Wait()
}

// Input is one export request.
type Input struct {
	Kind    Kind
	AssetID string
	// Preset is informational; its options are already part of Options.
	Preset  string
	Options []options.Option
	// Publish uploads the result through storage.Storage.Publish.
	Publish bool
}

// ExportService runs export jobs in the background with bounded
// concurrency.
type ExportService struct {
	repo     Repository
	exporter Exporter
	storage  storage.Storage
	logger   *slog.Logger

	sem     chan struct{}
	timeout time.Duration

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
}

// ServiceOption configures an ExportService.
type ServiceOption func(*ExportService)

// WithMaxConcurrent limits how many exports run at once. Values below 1 are
// ignored.
func WithMaxConcurrent(n int) ServiceOption {
	return func(s *ExportService) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithTimeout bounds each export. Zero means no deadline.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *ExportService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewExportService creates a new ExportService. store may be nil when
// publishing is not available.
func NewExportService(repo Repository, exporter Exporter, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &ExportService{
		repo:     repo,
		exporter: exporter,
		storage:  store,
		logger:   logger,
		sem:      make(chan struct{}, 2),
		baseCtx:  ctx,
		stop:     stop,
		cancels:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores a queued job and starts it in the background. The returned
// job is a snapshot.
func (s *ExportService) Submit(ctx context.Context, in Input) (*Job, error) {
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("unknown job kind %q", in.Kind)
	}
	if err := library.ValidateID(in.AssetID); err != nil {
		return nil, err
	}

	job := New(in.Kind, in.AssetID)
	job.Preset = in.Preset
	job.Publish = in.Publish

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	jobCtx, cancel := context.WithCancel(s.baseCtx)
	s.cancels[job.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("creating export job",
		slog.String("job_id", job.ID),
		slog.String("kind", string(in.Kind)),
		slog.String("asset_id", in.AssetID),
		slog.String("preset", in.Preset),
		slog.Bool("publish", in.Publish),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.release(job.ID)
		s.wg.Done()
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	snapshot := job.Clone()
	go s.run(jobCtx, job, in)
	return snapshot, nil
}

// Get retrieves a job by ID.
func (s *ExportService) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all jobs, newest first.
func (s *ExportService) List(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Cancel stops a queued or running job. Terminal jobs return
// ErrInvalidTransition.
func (s *ExportService) Cancel(ctx context.Context, id string) error {
	j, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if j.IsTerminal() {
		return ErrInvalidTransition
	}

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// DeleteOutput removes the rendered file of a finished job and clears its
// OutputPath. A published copy is left alone.
func (s *ExportService) DeleteOutput(ctx context.Context, id string) error {
	j, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !j.IsTerminal() {
		return ErrJobNotFinished
	}
	if j.OutputPath == "" {
		return ErrNoOutput
	}

	if s.storage != nil {
		err = s.storage.Cleanup(ctx, []string{j.OutputPath})
	} else if rmErr := os.Remove(j.OutputPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("delete export output: %w", err)
	}

	s.logger.Info("export output deleted",
		slog.String("job_id", id),
		slog.String("path", j.OutputPath),
	)
	j.SetOutput("", j.OutputURL)
	return s.repo.Save(ctx, j)
}

// Shutdown cancels every job and waits for the workers to record their
// final state and for the compositor calls to return, or for ctx to end.
func (s *ExportService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		// A worker returns as soon as its context ends; the compositor may
		// still be stopping.
		s.exporter.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for export jobs: %w", ctx.Err())
	}
}

func (s *ExportService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

func (s *ExportService) run(ctx context.Context, job *Job, in Input) {
	defer s.wg.Done()
	defer s.release(job.ID)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.finish(job, ctx.Err())
		return
	}

	if err := job.Start(); err != nil {
		s.logger.Error("failed to start job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		return
	}
	s.save(job)

	path, err := export.Await(ctx, func(complete func(export.Result)) error {
		var plan geometry.Plan
		var err error
		switch in.Kind {
		case KindImage:
			plan, err = s.exporter.ExportImage(ctx, in.AssetID, complete, in.Options...)
		default:
			plan, err = s.exporter.ExportVideo(ctx, in.AssetID, complete, in.Options...)
		}
		if err == nil {
			job.SetRenderSize(int(plan.RenderSize.Width), int(plan.RenderSize.Height))
			s.save(job)
		}
		return err
	})
	if err != nil {
		s.finish(job, err)
		return
	}

	var url string
	if in.Publish {
		url, err = s.publish(ctx, job.ID, path)
		if err != nil {
			job.SetOutput(path, "")
			s.finish(job, err)
			return
		}
	}

	job.SetOutput(path, url)
	s.finish(job, nil)
}

func (s *ExportService) publish(ctx context.Context, jobID, path string) (string, error) {
	if s.storage == nil {
		return "", storage.ErrPublishNotConfigured
	}
	key := fmt.Sprintf("exports/%s/%s", jobID, filepath.Base(path))
	url, err := s.storage.Publish(ctx, key, path)
	if err != nil {
		return "", fmt.Errorf("publish result: %w", err)
	}
	return url, nil
}

// finish records the terminal state of job for err.
func (s *ExportService) finish(job *Job, err error) {
	var terr error
	switch {
	case err == nil:
		terr = job.Complete()
	case errors.Is(err, context.DeadlineExceeded):
		terr = job.Timeout(err.Error())
	case errors.Is(err, context.Canceled):
		terr = job.Cancel(err.Error())
	default:
		terr = job.Fail(ErrorCode(err), err.Error())
	}
	if terr != nil {
		s.logger.Error("failed to record job outcome",
			slog.String("job_id", job.ID),
			slog.String("error", terr.Error()),
		)
	}

	s.save(job)

	attrs := []any{
		slog.String("job_id", job.ID),
		slog.String("status", string(job.GetStatus())),
	}
	if err != nil {
		s.logger.Warn("export job ended", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	s.logger.Info("export job completed", attrs...)
}

func (s *ExportService) save(job *Job) {
	// The request context may be gone; the repository still has to see the
	// final state.
	if err := s.repo.Save(context.Background(), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ErrorCode maps an export error to a stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, export.ErrAssetType):
		return "asset_type"
	case errors.Is(err, export.ErrNoSourceTrack):
		return "no_source_track"
	case errors.Is(err, export.ErrResizeConfiguration):
		return "resize_configuration"
	case errors.Is(err, library.ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, export.ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, options.ErrEmptyTrim):
		return "empty_trim"
	case errors.Is(err, media.ErrUnsupportedContainer):
		return "unsupported_container"
	case errors.Is(err, storage.ErrPublishNotConfigured):
		return "publish_not_configured"
	case errors.Is(err, export.ErrExportSession):
		return "export_session"
	default:
		return "internal"
	}
}
