package shapefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IntegerColumn(t *testing.T) {
	r := &Reader{}
	f := Field{Name: "CATCH", Kind: FieldInteger, Size: 12}

	v, ok := r.value(f, "  42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	v, ok = r.value(f, "12.000")
	assert.True(t, ok)
	assert.Equal(t, int64(12), v)

	v, ok = r.value(f, "12.75")
	assert.True(t, ok)
	assert.Equal(t, 12.75, v)

	v, ok = r.value(f, "n/a")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestValue_Boolean(t *testing.T) {
	r := &Reader{}
	f := Field{Name: "ACTIVE", Kind: FieldBoolean}

	v, ok := r.value(f, "Y")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = r.value(f, "?")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = r.value(f, "maybe")
	assert.False(t, ok)
}

func TestSidecar_MatchesExtensionCase(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"FP.SHP", "FP.DBF", "mixed.Shp", "mixed.Dbf", "low.shp", "low.dbf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	assert.Equal(t, filepath.Join(dir, "FP.DBF"), sidecar(filepath.Join(dir, "FP.SHP"), ".dbf"))
	assert.Equal(t, filepath.Join(dir, "mixed.Dbf"), sidecar(filepath.Join(dir, "mixed.Shp"), ".dbf"))
	assert.Equal(t, filepath.Join(dir, "low.dbf"), sidecar(filepath.Join(dir, "low.shp"), ".dbf"))
	assert.Equal(t, filepath.Join(dir, "low.prj"), sidecar(filepath.Join(dir, "low.shp"), ".prj"))
}

func TestLowercaseView(t *testing.T) {
	dir := t.TempDir()
	lower := filepath.Join(dir, "low.shp")
	require.NoError(t, os.WriteFile(lower, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "low.dbf"), nil, 0o644))

	got, cleanup, err := lowercaseView(lower)
	require.NoError(t, err)
	cleanup()
	assert.Equal(t, lower, got)

	upper := filepath.Join(dir, "UP.SHP")
	require.NoError(t, os.WriteFile(upper, []byte("shp"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UP.DBF"), []byte("dbf"), 0o644))

	got, cleanup, err = lowercaseView(upper)
	require.NoError(t, err)
	assert.Equal(t, ".shp", filepath.Ext(got))

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(data))
	data, err = os.ReadFile(got[:len(got)-3] + "dbf")
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(data))

	cleanup()
	assert.NoDirExists(t, filepath.Dir(got))
}
