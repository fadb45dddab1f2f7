// Package shapefiletest writes small shapefiles for tests.
package shapefiletest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// BCAlbers is the .prj ArcGIS writes for NAD 1983 BC Environment Albers.
const BCAlbers = `PROJCS["NAD_1983_BC_Environment_Albers",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Albers"],PARAMETER["False_Easting",1000000.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-126.0],PARAMETER["Standard_Parallel_1",50.0],PARAMETER["Standard_Parallel_2",58.5],PARAMETER["Latitude_Of_Origin",45.0],UNIT["Meter",1.0]]`

// WGS84 is the .prj ArcGIS writes for geographic WGS 84.
const WGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Record is one shape plus its attribute values, in field order.
type Record struct {
	Shape  shp.Shape
	Values []any
}

// File describes a shapefile to write.
type File struct {
	Name       string
	Type       shp.ShapeType
	Fields     []shp.Field
	Records    []Record
	Projection string // .prj contents; omitted when empty
	CodePage   string // .cpg contents; omitted when empty
}

// Write creates dir/<Name>.shp with its .shx, .dbf and optional .prj/.cpg
// sidecars, and returns the .shp path.
func Write(t testing.TB, dir string, f File) string {
	t.Helper()

	path := filepath.Join(dir, f.Name+".shp")
	w, err := shp.Create(path, f.Type)
	require.NoError(t, err)

	fields := f.Fields
	if len(fields) == 0 {
		fields = []shp.Field{shp.StringField("NAME", 32)}
	}
	require.NoError(t, w.SetFields(fields))

	for i, rec := range f.Records {
		row := int(w.Write(rec.Shape))
		values := rec.Values
		if len(f.Fields) == 0 {
			values = []any{fmt.Sprintf("%s_%d", f.Name, i)}
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			require.NoError(t, w.WriteAttribute(row, col, v))
		}
	}
	w.Close()

	// go-shp names the attribute table <base>dbf, without the dot.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	if f.Projection != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name+".prj"), []byte(f.Projection), 0o644))
	}
	if f.CodePage != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name+".cpg"), []byte(f.CodePage), 0o644))
	}
	return path
}

// UpperExtensions renames the shapefile at shpPath and its sidecars to
// uppercase extensions, the way Windows tools often leave them, and returns
// the new .shp path.
func UpperExtensions(t testing.TB, shpPath string) string {
	t.Helper()

	base := strings.TrimSuffix(shpPath, ".shp")
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj", ".cpg"} {
		if _, err := os.Stat(base + ext); err != nil {
			continue
		}
		require.NoError(t, os.Rename(base+ext, base+strings.ToUpper(ext)))
	}
	return base + ".SHP"
}

// Squares writes a polygon shapefile holding n unit squares.
func Squares(t testing.TB, dir, name string, n int, projection string) string {
	t.Helper()

	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{Shape: Square(float64(i)*10, 0, 5)}
	}
	return Write(t, dir, File{
		Name:       name,
		Type:       shp.POLYGON,
		Records:    recs,
		Projection: projection,
	})
}

// Square returns a single-ring polygon with a clockwise (outer) ring.
func Square(x, y, size float64) *shp.Polygon {
	return Polygon([]shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	})
}

// Polygon builds a polygon from rings given in shapefile order.
func Polygon(rings ...[]shp.Point) *shp.Polygon {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}
