package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalLibrary serves assets from a directory. The asset id is the path
// relative to the root.
type LocalLibrary struct {
	root string
}

// Ensure LocalLibrary implements Library.
var _ Library = (*LocalLibrary)(nil)

// NewLocalLibrary creates a LocalLibrary rooted at root.
func NewLocalLibrary(root string) *LocalLibrary {
	return &LocalLibrary{root: root}
}

// Asset implements Library.
func (l *LocalLibrary) Asset(ctx context.Context, id string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	if err := ValidateID(id); err != nil {
		return Asset{}, err
	}

	st, err := os.Stat(filepath.Join(l.root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		return Asset{}, fmt.Errorf("stat asset: %w", err)
	}
	if st.IsDir() {
		return Asset{}, fmt.Errorf("%w: %s is a directory", ErrAssetNotFound, id)
	}

	return Asset{
		ID:       id,
		Kind:     KindOf(id),
		Filename: filepath.Base(id),
		Size:     st.Size(),
	}, nil
}

// Export implements Library.
func (l *LocalLibrary) Export(ctx context.Context, asset Asset, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(asset.ID); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(l.root, asset.ID)) // #nosec G304 - id is validated to stay under root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, asset.ID)
		}
		return fmt.Errorf("open asset: %w", err)
	}
	defer func() { _ = src.Close() }()

	return writeFile(dst, src)
}
