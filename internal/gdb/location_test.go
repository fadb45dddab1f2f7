package gdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/footprint-gdb/internal/gdb"
)

func TestParseLocation(t *testing.T) {
	root := filepath.Join("data", "Shellfish.gdb")

	loc, err := gdb.ParseLocation(root)
	require.NoError(t, err)
	assert.Equal(t, gdb.Location{Geodatabase: root}, loc)
	assert.Equal(t, root, loc.String())

	loc, err = gdb.ParseLocation(filepath.Join(root, "SeaCucumber"))
	require.NoError(t, err)
	assert.Equal(t, gdb.Location{Geodatabase: root, Dataset: "SeaCucumber"}, loc)
	assert.Equal(t, filepath.Join(root, "SeaCucumber"), loc.String())

	loc, err = gdb.ParseLocation(filepath.Join("data", "survey.GPKG") + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "survey.GPKG"), loc.Geodatabase)
	assert.Empty(t, loc.Dataset)
}

func TestParseLocation_Invalid(t *testing.T) {
	_, err := gdb.ParseLocation(filepath.Join("data", "shapefiles"))
	assert.ErrorIs(t, err, gdb.ErrInvalidName)

	_, err = gdb.ParseLocation(filepath.Join("data", "Shellfish.gdb", "SeaCucumber", "beds"))
	assert.ErrorIs(t, err, gdb.ErrInvalidName)
}

func TestParseLocation_FileGeodatabaseDirectory(t *testing.T) {
	esri := filepath.Join(t.TempDir(), "Shellfish.gdb")
	require.NoError(t, os.MkdirAll(filepath.Join(esri, "exports"), 0o755))

	_, err := gdb.ParseLocation(esri)
	assert.ErrorIs(t, err, gdb.ErrInvalidName)

	_, err = gdb.ParseLocation(filepath.Join(esri, "exports"))
	assert.ErrorIs(t, err, gdb.ErrInvalidName)
}

func TestIsGeodatabasePath(t *testing.T) {
	assert.True(t, gdb.IsGeodatabasePath("a/Shellfish.gdb"))
	assert.True(t, gdb.IsGeodatabasePath("a/b.GPKG"))
	assert.False(t, gdb.IsGeodatabasePath("a/b.shp"))
	assert.False(t, gdb.IsGeodatabasePath("a/gdb"))
}
