package export

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/mediaexport/internal/library"
	"github.com/maauso/mediaexport/internal/media"
)

type mockLibrary struct {
	mock.Mock
}

func (m *mockLibrary) Asset(ctx context.Context, id string) (library.Asset, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(library.Asset), args.Error(1)
}

func (m *mockLibrary) Export(ctx context.Context, asset library.Asset, dst string) error {
	args := m.Called(ctx, asset, dst)
	return args.Error(0)
}

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, path string) (media.Info, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.Info), args.Error(1)
}

type mockCompositor struct {
	mock.Mock
}

func (m *mockCompositor) Composite(ctx context.Context, req media.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
