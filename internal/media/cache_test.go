package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaexport/internal/geometry"
)

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, path string) (Info, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(Info), args.Error(1)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCachedProber_HitsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, path, "data")

	want := Info{Size: geometry.Size{Width: 10, Height: 20}, Metadata: geometry.Identity}
	next := new(mockProber)
	next.On("Probe", mock.Anything, path).Return(want, nil).Once()

	p := NewCachedProber(next, time.Minute)
	ctx := context.Background()

	for range 3 {
		got, err := p.Probe(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, 1, p.Len())
	next.AssertNumberOfCalls(t, "Probe", 1)
}

func TestCachedProber_RewrittenFileIsProbedAgain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, path, "data")

	next := new(mockProber)
	next.On("Probe", mock.Anything, path).Return(Info{Metadata: geometry.Identity}, nil)

	p := NewCachedProber(next, time.Minute)
	ctx := context.Background()

	_, err := p.Probe(ctx, path)
	require.NoError(t, err)

	writeFile(t, path, "longer data")
	_, err = p.Probe(ctx, path)
	require.NoError(t, err)

	next.AssertNumberOfCalls(t, "Probe", 2)
}

func TestCachedProber_ErrorsAreNotCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	writeFile(t, path, "data")

	next := new(mockProber)
	next.On("Probe", mock.Anything, path).Return(Info{}, errors.New("boom"))

	p := NewCachedProber(next, time.Minute)

	_, err := p.Probe(context.Background(), path)
	assert.Error(t, err)
	_, err = p.Probe(context.Background(), path)
	assert.Error(t, err)

	assert.Equal(t, 0, p.Len())
	next.AssertNumberOfCalls(t, "Probe", 2)
}

func TestCachedProber_MissingFile(t *testing.T) {
	next := new(mockProber)
	p := NewCachedProber(next, time.Minute)

	_, err := p.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	next.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}
