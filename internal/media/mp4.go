package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// TrackInfo is what the ISO-BMFF boxes tell about the first video track.
type TrackInfo struct {
	Duration time.Duration
}

// MP4Inspector reads track headers of MP4/MOV files without decoding media.
type MP4Inspector struct{}

// NewMP4Inspector creates a new MP4Inspector.
func NewMP4Inspector() *MP4Inspector {
	return &MP4Inspector{}
}

// Supports reports whether path has an ISO-BMFF extension.
func (i *MP4Inspector) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".m4v":
		return true
	default:
		return false
	}
}

// Inspect returns the first video track of the file, or ErrNoVideoStream.
func (i *MP4Inspector) Inspect(path string) (TrackInfo, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the export pipeline
	if err != nil {
		return TrackInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return inspect(f)
}

// decodeBoxes parses the box tree. mdat payloads stay on disk.
func decodeBoxes(r io.ReadSeeker) (*mp4.File, error) {
	mp4File, err := mp4.DecodeFile(r, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	return mp4File, nil
}

func inspect(r io.ReadSeeker) (TrackInfo, error) {
	mp4File, err := decodeBoxes(r)
	if err != nil {
		return TrackInfo{}, err
	}

	moov := mp4File.Moov
	if moov == nil && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return TrackInfo{}, fmt.Errorf("%w: missing moov box", ErrNoVideoStream)
	}

	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		var info TrackInfo
		if moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
			info.Duration = time.Duration(float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale) * float64(time.Second))
		}
		return info, nil
	}

	return TrackInfo{}, ErrNoVideoStream
}

// TrackCheckingProber rejects ISO-BMFF files without a video track before
// handing them to the wrapped prober. Other files pass straight through.
type TrackCheckingProber struct {
	next      Prober
	inspector *MP4Inspector
}

// Ensure TrackCheckingProber implements Prober.
var _ Prober = (*TrackCheckingProber)(nil)

// NewTrackCheckingProber wraps next.
func NewTrackCheckingProber(next Prober, inspector *MP4Inspector) *TrackCheckingProber {
	if inspector == nil {
		inspector = NewMP4Inspector()
	}
	return &TrackCheckingProber{next: next, inspector: inspector}
}

// Probe implements Prober.
func (p *TrackCheckingProber) Probe(ctx context.Context, path string) (Info, error) {
	if !p.inspector.Supports(path) {
		return p.next.Probe(ctx, path)
	}

	track, err := p.inspector.Inspect(path)
	if err != nil {
		return Info{}, err
	}

	info, err := p.next.Probe(ctx, path)
	if err != nil {
		return Info{}, err
	}
	if info.Duration == 0 {
		info.Duration = track.Duration
	}
	return info, nil
}
