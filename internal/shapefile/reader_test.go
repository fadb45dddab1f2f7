package shapefile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/footprint-gdb/internal/shapefile"
	"github.com/sells-group/footprint-gdb/internal/shapefile/shapefiletest"
)

func TestList(t *testing.T) {
	dir := t.TempDir()
	shapefiletest.Squares(t, dir, "b_footprint", 1, "")
	shapefiletest.Squares(t, dir, "a_footprint", 1, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.shp"), 0o755))

	paths, err := shapefile.List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a_footprint.shp"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b_footprint.shp"), paths[1])
}

func TestList_Empty(t *testing.T) {
	paths, err := shapefile.List(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestList_MissingDir(t *testing.T) {
	_, err := shapefile.List(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReader_FieldsAndValues(t *testing.T) {
	dir := t.TempDir()
	path := shapefiletest.Write(t, dir, shapefiletest.File{
		Name: "gsufishingevent2014_15",
		Type: shp.POINT,
		Fields: []shp.Field{
			shp.StringField("VESSEL", 20),
			shp.NumberField("LICENCE", 8),
			shp.FloatField("WEIGHT_KG", 12, 2),
			shp.DateField("LANDED"),
		},
		Records: []shapefiletest.Record{
			{Shape: &shp.Point{X: 1, Y: 2}, Values: []any{"Sea Star", 1234, 56.25, "20150117"}},
			{Shape: &shp.Point{X: 3, Y: 4}, Values: []any{nil, nil, nil, nil}},
		},
		Projection: shapefiletest.BCAlbers,
	})

	assert.FileExists(t, filepath.Join(dir, "gsufishingevent2014_15.dbf"))

	r, err := shapefile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "gsufishingevent2014_15", r.Name())
	assert.Equal(t, "POINT", r.GeometryType())
	assert.Equal(t, filepath.Join(dir, "gsufishingevent2014_15.prj"), r.ProjectionPath())

	fields := r.Fields()
	require.NotEmpty(t, fields)
	require.Len(t, fields, 4)
	assert.Equal(t, shapefile.Field{Name: "VESSEL", Kind: shapefile.FieldText, Size: 20}, fields[0])
	assert.Equal(t, shapefile.FieldInteger, fields[1].Kind)
	assert.Equal(t, shapefile.FieldReal, fields[2].Kind)
	assert.Equal(t, shapefile.FieldDate, fields[3].Kind)

	var feats []shapefile.Feature
	require.NoError(t, r.Each(context.Background(), func(f shapefile.Feature) error {
		feats = append(feats, f)
		return nil
	}))
	require.Len(t, feats, 2)

	assert.Equal(t, []any{"Sea Star", int64(1234), 56.25, "2015-01-17"}, feats[0].Attributes)
	p, ok := feats[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, p.FlatCoords())

	assert.Equal(t, []any{nil, nil, nil, nil}, feats[1].Attributes)
}

func TestReader_UpperExtensions(t *testing.T) {
	dir := t.TempDir()
	path := shapefiletest.UpperExtensions(t, shapefiletest.Write(t, dir, shapefiletest.File{
		Name:       "FP",
		Type:       shp.POINT,
		Fields:     []shp.Field{shp.StringField("VESSEL", 20)},
		Records:    []shapefiletest.Record{{Shape: &shp.Point{X: 5, Y: 6}, Values: []any{"Kelp Runner"}}},
		Projection: shapefiletest.BCAlbers,
	}))

	paths, err := shapefile.List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{path}, paths)

	r, err := shapefile.Open(path)
	require.NoError(t, err)

	assert.Equal(t, "FP", r.Name())
	assert.Equal(t, path, r.Path())
	assert.Equal(t, filepath.Join(dir, "FP.PRJ"), r.ProjectionPath())
	require.Len(t, r.Fields(), 1)

	var got []any
	require.NoError(t, r.Each(context.Background(), func(f shapefile.Feature) error {
		got = f.Attributes
		return nil
	}))
	assert.Equal(t, []any{"Kelp Runner"}, got)
	require.NoError(t, r.Close())
}

func TestReader_NoProjection(t *testing.T) {
	path := shapefiletest.Squares(t, t.TempDir(), "bare", 2, "")

	r, err := shapefile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.ProjectionPath())
	assert.Equal(t, "MULTIPOLYGON", r.GeometryType())

	b := r.Bounds()
	assert.Equal(t, 0.0, b.Min(0))
	assert.Equal(t, 15.0, b.Max(0))
}

func TestReader_Windows1252Text(t *testing.T) {
	dir := t.TempDir()
	path := shapefiletest.Write(t, dir, shapefiletest.File{
		Name:     "latin",
		Type:     shp.POINT,
		Fields:   []shp.Field{shp.StringField("AREA", 20)},
		Records:  []shapefiletest.Record{{Shape: &shp.Point{X: 0, Y: 0}, Values: []any{"Qu\xe9bec"}}},
		CodePage: "1252",
	})

	r, err := shapefile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var got any
	require.NoError(t, r.Each(context.Background(), func(f shapefile.Feature) error {
		got = f.Attributes[0]
		return nil
	}))
	assert.Equal(t, "Québec", got)
}

func TestReader_UTF8Text(t *testing.T) {
	dir := t.TempDir()
	path := shapefiletest.Write(t, dir, shapefiletest.File{
		Name:     "utf",
		Type:     shp.POINT,
		Fields:   []shp.Field{shp.StringField("AREA", 20)},
		Records:  []shapefiletest.Record{{Shape: &shp.Point{X: 0, Y: 0}, Values: []any{"Québec"}}},
		CodePage: "UTF-8",
	})

	r, err := shapefile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	var got any
	require.NoError(t, r.Each(context.Background(), func(f shapefile.Feature) error {
		got = f.Attributes[0]
		return nil
	}))
	assert.Equal(t, "Québec", got)
}

func TestReader_EachCancelled(t *testing.T) {
	path := shapefiletest.Squares(t, t.TempDir(), "many", 3, "")

	r, err := shapefile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = r.Each(ctx, func(shapefile.Feature) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_Missing(t *testing.T) {
	_, err := shapefile.Open(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestOpen_UnknownCodePage(t *testing.T) {
	dir := t.TempDir()
	path := shapefiletest.Write(t, dir, shapefiletest.File{
		Name:     "odd",
		Type:     shp.POINT,
		Records:  []shapefiletest.Record{{Shape: &shp.Point{X: 0, Y: 0}}},
		CodePage: "KLINGON",
	})

	_, err := shapefile.Open(path)
	assert.Error(t, err)
}
