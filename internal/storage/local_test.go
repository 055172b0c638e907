package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "exports")

		storage, err := NewLocalStorage(dir)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.Dir() != dir {
			t.Errorf("Dir() = %v, want %v", storage.Dir(), dir)
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "mediaexport")
		if storage.Dir() != expected {
			t.Errorf("Dir() = %v, want %v", storage.Dir(), expected)
		}
	})
}

func TestLocalStorage_Cleanup(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("removes files", func(t *testing.T) {
		var paths []string
		for _, name := range []string{"a.mp4", "b.mp4", "c.jpg"} {
			path := filepath.Join(storage.Dir(), name)
			if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
			paths = append(paths, path)
		}

		if err := storage.Cleanup(ctx, paths); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}

		for _, p := range paths {
			if _, err := os.Stat(p); !os.IsNotExist(err) {
				t.Errorf("file %s still exists", p)
			}
		}
	})

	t.Run("ignores non-existent files", func(t *testing.T) {
		err := storage.Cleanup(ctx, []string{filepath.Join(storage.Dir(), "missing.mp4")})
		if err != nil {
			t.Errorf("Cleanup() should ignore non-existent files, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := storage.Cleanup(ctx, []string{"/some/path"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocalStorage_Publish(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Publish(context.Background(), "key", "/any/path")
	if !errors.Is(err, ErrPublishNotConfigured) {
		t.Errorf("expected ErrPublishNotConfigured, got %v", err)
	}
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()

	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}
