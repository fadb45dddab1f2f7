package populate

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateGeodatabase(ctx context.Context, folder, name string) (string, error) {
	args := m.Called(ctx, folder, name)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) ListFeatureClasses(ctx context.Context, workspace string) ([]string, error) {
	args := m.Called(ctx, workspace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockBackend) ConvertFeatureClasses(ctx context.Context, inputs []string, destination string) error {
	args := m.Called(ctx, inputs, destination)
	return args.Error(0)
}

func (m *mockBackend) SpatialReference(ctx context.Context, prjPath string) (spatialref.SpatialReference, error) {
	args := m.Called(ctx, prjPath)
	return args.Get(0).(spatialref.SpatialReference), args.Error(1)
}

func (m *mockBackend) CreateFeatureDataset(ctx context.Context, gdbPath, name string, sr spatialref.SpatialReference) error {
	args := m.Called(ctx, gdbPath, name, sr)
	return args.Error(0)
}
