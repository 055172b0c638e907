package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository stores export jobs.
type Repository interface {
	// Save inserts or replaces a job.
	Save(ctx context.Context, job *Job) error

	// FindByID returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]*Job, error)

	// Delete returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, id string) error
}
