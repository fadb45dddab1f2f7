package gdb_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/footprint-gdb/internal/gdb"
	"github.com/sells-group/footprint-gdb/internal/shapefile/shapefiletest"
	"github.com/sells-group/footprint-gdb/internal/spatialref"
)

func newGeodatabase(t *testing.T) *gdb.Geodatabase {
	t.Helper()
	g, err := gdb.Create(context.Background(), filepath.Join(t.TempDir(), "Test.gdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func bcAlbers(t *testing.T) spatialref.SpatialReference {
	t.Helper()
	sr, err := spatialref.Parse(shapefiletest.BCAlbers)
	require.NoError(t, err)
	return sr
}

// rawDB opens a second connection to inspect tables directly.
func rawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
