// Package library resolves asset identifiers to media resources and exports
// the original resource of an asset to a local file.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrAssetNotFound is returned when no asset exists for an id.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrInvalidAssetID is returned for empty ids and ids escaping the library.
	ErrInvalidAssetID = errors.New("invalid asset id")
)

// Kind is the media type of an asset.
type Kind string

const (
	KindVideo   Kind = "video"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

// KindOf classifies a filename by extension.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".m4v":
		return KindVideo
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff":
		return KindImage
	case ".m4a", ".mp3", ".aac", ".wav":
		return KindAudio
	default:
		return KindUnknown
	}
}

// Asset is a media item in the library.
type Asset struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Library looks assets up by id and exports their original resource.
type Library interface {
	// Asset returns the asset for id, or ErrAssetNotFound.
	Asset(ctx context.Context, id string) (Asset, error)

	// Export writes the original resource of asset to dst.
	Export(ctx context.Context, asset Asset, dst string) error
}

// ValidateID rejects ids that are empty, absolute or climb out of the
// library root.
func ValidateID(id string) error {
	if id == "" || strings.Contains(id, `\`) || !filepath.IsLocal(id) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetID, id)
	}
	return nil
}

// writeFile copies r to a new file at dst. A partial file is removed.
func writeFile(dst string, r io.Reader) error {
	f, err := os.Create(dst) // #nosec G304 - dst is built by the export pipeline
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
