// Package storage owns the local working directory exports are written to
// and publishes finished exports to object storage.
package storage

import (
	"context"
)

// Storage defines where exports live. Implementations keep results on local
// disk and optionally copy them to a remote bucket.
type Storage interface {
	// Dir returns the directory exports are written to.
	Dir() string

	// Cleanup removes the given local files. Missing files are not an error
	// and removal continues past failures.
	Cleanup(ctx context.Context, paths []string) error

	// Publish uploads the local file at path under key and returns its URL.
	// Returns ErrPublishNotConfigured if there is no remote store.
	Publish(ctx context.Context, key, path string) (url string, err error)
}
