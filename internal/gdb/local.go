package gdb

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/footprint-gdb/internal/shapefile"
	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

// Local runs geoprocessing operations against geodatabase files on the
// local filesystem. Every call opens and closes the files it touches.
type Local struct {
	log *zap.Logger
}

// NewLocal returns a Local backend.
func NewLocal() *Local {
	return &Local{log: zap.L().With(zap.String("component", "gdb.local"))}
}

// CreateGeodatabase creates folder/name and returns its path.
func (l *Local) CreateGeodatabase(ctx context.Context, folder, name string) (string, error) {
	path := filepath.Join(folder, name)
	g, err := Create(ctx, path)
	if err != nil {
		return "", err
	}
	if err := g.Close(); err != nil {
		return "", eris.Wrapf(err, "gdb: close %s", path)
	}
	return path, nil
}

// ListFeatureClasses lists the feature classes in workspace. A folder yields
// the absolute paths of its shapefiles; a geodatabase or dataset location
// yields the names of the feature classes stored there.
func (l *Local) ListFeatureClasses(ctx context.Context, workspace string) ([]string, error) {
	loc, err := ParseLocation(workspace)
	if err != nil {
		return shapefile.List(workspace)
	}

	g, err := Open(loc.Geodatabase)
	if err != nil {
		return nil, err
	}
	defer func() { _ = g.Close() }()

	return g.FeatureClassNames(ctx, loc.Dataset)
}

// ConvertFeatureClasses imports each shapefile in inputs into destination,
// in order. The first failure stops the batch; feature classes imported
// before it are kept.
func (l *Local) ConvertFeatureClasses(ctx context.Context, inputs []string, destination string) error {
	log := l.log.With(zap.String("destination", destination))

	loc, err := ParseLocation(destination)
	if err != nil {
		return err
	}

	g, err := Open(loc.Geodatabase)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	if loc.Dataset != "" {
		if _, err := g.FeatureDataset(ctx, loc.Dataset); err != nil {
			return err
		}
	}

	if len(inputs) == 0 {
		log.Warn("no feature classes to convert")
		return nil
	}

	run, err := g.BeginRun(ctx, destination)
	if err != nil {
		return err
	}

	var imported int
	var runErr error
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			runErr = eris.Wrap(err, "gdb: convert cancelled")
			break
		}
		if _, err := g.ImportShapefile(ctx, run, in, loc.Dataset); err != nil {
			runErr = eris.Wrapf(err, "gdb: convert %s", in)
			break
		}
		imported++
	}

	// Record the run even when ctx was cancelled.
	if err := g.FinishRun(context.WithoutCancel(ctx), run, imported, runErr); err != nil {
		log.Error("recording import run", zap.String("run_id", run.ID), zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	log.Info("feature classes converted",
		zap.String("run_id", run.ID),
		zap.Int("count", imported),
	)
	return nil
}

// SpatialReference reads the projection file at path.
func (l *Local) SpatialReference(_ context.Context, path string) (spatialref.SpatialReference, error) {
	return spatialref.FromFile(path)
}

// CreateFeatureDataset creates dataset name in the geodatabase at gdbPath.
func (l *Local) CreateFeatureDataset(ctx context.Context, gdbPath, name string, sr spatialref.SpatialReference) error {
	g, err := Open(gdbPath)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	_, err = g.CreateFeatureDataset(ctx, name, sr)
	return err
}
