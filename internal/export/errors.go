package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/maauso/mediaexport/internal/geometry"
)

// Export errors. Everything except ErrExportSession is returned
// synchronously by the Exporter; compositor failures arrive through the
// completion as *SessionError.
var (
	// ErrAssetType is returned when the asset is not of the kind the export
	// handles, e.g. an image passed to ExportVideo.
	ErrAssetType = errors.New("asset has the wrong media type")
	// ErrNoSourceTrack is returned when the source has no decodable video or
	// image track.
	ErrNoSourceTrack = errors.New("no source track found")
	// ErrExportSession is matched by every *SessionError.
	ErrExportSession = errors.New("export session failed")
	// ErrResizeConfiguration is returned when no usable resize mode is set.
	ErrResizeConfiguration = geometry.ErrResizeConfiguration
	// ErrResourceUnavailable is returned when the original resource of an
	// asset cannot be exported to a local file.
	ErrResourceUnavailable = errors.New("asset resource is unavailable")
)

// SessionKind distinguishes compositor failures.
type SessionKind int

const (
	// KindSession is a failure reported by the compositor itself.
	KindSession SessionKind = iota
	// KindCancelled means the compositor stopped because its context ended.
	KindCancelled
)

func (k SessionKind) String() string {
	if k == KindCancelled {
		return "cancelled"
	}
	return "session"
}

// SessionError wraps a compositor failure. It matches ErrExportSession and
// its cause with errors.Is.
type SessionError struct {
	Kind SessionKind
	Err  error
}

func newSessionError(err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	kind := KindSession
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCancelled
	}
	return &SessionError{Kind: kind, Err: err}
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("export session %s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExportSession.
func (e *SessionError) Is(target error) bool {
	return target == ErrExportSession
}
