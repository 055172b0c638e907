package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPublishNotConfigured is returned when a publish is attempted without an
// object store.
var ErrPublishNotConfigured = errors.New("object storage is not configured")

// LocalStorage implements Storage on local disk only.
type LocalStorage struct {
	dir string
}

// Ensure LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a LocalStorage rooted at dir, creating it if
// needed. An empty dir means a "mediaexport" folder under os.TempDir().
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mediaexport")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	return &LocalStorage{dir: dir}, nil
}

// Dir implements Storage.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Cleanup implements Storage. It returns the first removal error.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish is not supported by LocalStorage and returns ErrPublishNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrPublishNotConfigured
}
