// Package job tracks asynchronous export requests. A Job moves through
// IN_QUEUE, RUNNING and one terminal state, and records the rendered output.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/mediaexport/internal/job/id"
)

// Kind selects the export pipeline of a job.
type Kind string

const (
	// KindVideo exports a video asset through the video compositor.
	KindVideo Kind = "video"
	// KindImage exports an image asset through the image compositor.
	KindImage Kind = "image"
)

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindVideo || k == KindImage
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting for a free export slot.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the export is in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the export finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the export failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled by a caller or shutdown.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates the export exceeded its deadline.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled, StatusTimedOut},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job is one export request.
type Job struct {
	mu sync.RWMutex

	ID      string
	Kind    Kind
	AssetID string
	// Preset is the name of the preset the request used, if any.
	Preset string
	Status Status
	// Error and ErrorCode describe a FAILED, CANCELLED or TIMED_OUT job.
	Error     string
	ErrorCode string
	// RenderWidth and RenderHeight are known once the plan is computed.
	RenderWidth  int
	RenderHeight int
	// OutputPath is the local path of the rendered file.
	OutputPath string
	// Publish requests an upload of the result to object storage.
	Publish bool
	// OutputURL is set when the result was published.
	OutputURL string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a queued job with a generated ID.
func New(kind Kind, assetID string) *Job {
	return NewWithID(id.Generate(), kind, assetID)
}

// NewWithID creates a queued job with the given ID.
func NewWithID(jobID string, kind Kind, assetID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Kind:      kind,
		AssetID:   assetID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED and records why.
func (j *Job) Fail(code, msg string) error {
	return j.finish(StatusFailed, code, msg)
}

// Cancel transitions the job to CANCELLED.
func (j *Job) Cancel(msg string) error {
	return j.finish(StatusCancelled, "cancelled", msg)
}

// Timeout transitions the job to TIMED_OUT.
func (j *Job) Timeout(msg string) error {
	return j.finish(StatusTimedOut, "timeout", msg)
}

func (j *Job) finish(status Status, code, msg string) error {
	if err := j.TransitionTo(status); err != nil {
		return err
	}
	j.mu.Lock()
	j.ErrorCode = code
	j.Error = msg
	j.mu.Unlock()
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetRenderSize records the planned output size.
func (j *Job) SetRenderSize(width, height int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RenderWidth = width
	j.RenderHeight = height
	j.UpdatedAt = time.Now()
}

// SetOutput records the rendered file and its published URL, if any.
func (j *Job) SetOutput(path, url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.OutputURL = url
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:           j.ID,
		Kind:         j.Kind,
		AssetID:      j.AssetID,
		Preset:       j.Preset,
		Status:       j.Status,
		Error:        j.Error,
		ErrorCode:    j.ErrorCode,
		RenderWidth:  j.RenderWidth,
		RenderHeight: j.RenderHeight,
		OutputPath:   j.OutputPath,
		Publish:      j.Publish,
		OutputURL:    j.OutputURL,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
