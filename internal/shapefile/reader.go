package shapefile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
)

// FieldKind is the storage class of a DBF attribute column.
type FieldKind string

// Field kinds derived from DBF field types.
const (
	FieldText    FieldKind = "TEXT"
	FieldInteger FieldKind = "INTEGER"
	FieldReal    FieldKind = "REAL"
	FieldBoolean FieldKind = "BOOLEAN"
	FieldDate    FieldKind = "DATE"
)

// Field is one attribute column of a shapefile.
type Field struct {
	Name      string
	Kind      FieldKind
	Size      int
	Precision int
}

// Feature is one shapefile record. Geometry is nil for null shapes and
// Attributes line up with Reader.Fields.
type Feature struct {
	Index      int
	Geometry   geom.T
	Attributes []any
}

// Reader reads the records of a single shapefile.
type Reader struct {
	path    string
	shp     *shp.Reader
	fields  []Field
	decoder *encoding.Decoder
	cleanup func()
}

// Open opens the shapefile at path along with its .dbf and .cpg sidecars.
func Open(path string) (*Reader, error) {
	enc, err := codePage(path)
	if err != nil {
		return nil, err
	}

	openPath, cleanup, err := lowercaseView(path)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(openPath)
	if err != nil {
		cleanup()
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}

	r := &Reader{path: path, shp: reader, cleanup: cleanup}
	if enc != nil {
		r.decoder = enc.NewDecoder()
	}

	for _, f := range reader.Fields() {
		r.fields = append(r.fields, Field{
			Name:      strings.TrimSpace(strings.TrimRight(f.String(), "\x00")),
			Kind:      fieldKind(f),
			Size:      int(f.Size),
			Precision: int(f.Precision),
		})
	}
	return r, nil
}

// Close releases the underlying files.
func (r *Reader) Close() error {
	err := r.shp.Close()
	r.cleanup()
	return err
}

// Path returns the .shp path the reader was opened with.
func (r *Reader) Path() string { return r.path }

// Name returns the feature class name: the file name without extension.
func (r *Reader) Name() string { return Name(r.path) }

// Fields returns the attribute columns in DBF order.
func (r *Reader) Fields() []Field { return r.fields }

// GeometryType returns the GeoPackage geometry type name for the file.
func (r *Reader) GeometryType() string { return GeometryTypeName(r.shp.GeometryType) }

// Bounds returns the file's XY bounding box from the shapefile header.
func (r *Reader) Bounds() *geom.Bounds {
	box := r.shp.BBox()
	return geom.NewBounds(geom.XY).Set(box.MinX, box.MinY, box.MaxX, box.MaxY)
}

// ProjectionPath returns the .prj sidecar path, or "" when there is none.
func (r *Reader) ProjectionPath() string {
	p := sidecar(r.path, ".prj")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// Each calls fn for every record in file order. It stops at the first
// error returned by fn or when ctx is cancelled.
func (r *Reader) Each(ctx context.Context, fn func(Feature) error) error {
	var nullShapes, badValues int

	for r.shp.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		idx, shape := r.shp.Shape()
		g := ToGeom(shape)
		if g == nil {
			nullShapes++
		}

		attrs := make([]any, len(r.fields))
		for i, f := range r.fields {
			v, ok := r.value(f, r.shp.Attribute(i))
			if !ok {
				badValues++
			}
			attrs[i] = v
		}

		if err := fn(Feature{Index: idx, Geometry: g, Attributes: attrs}); err != nil {
			return err
		}
	}
	if err := r.shp.Err(); err != nil {
		return eris.Wrapf(err, "shapefile: read %s", r.path)
	}

	if nullShapes > 0 || badValues > 0 {
		zap.L().Debug("shapefile: records with missing data",
			zap.String("path", r.path),
			zap.Int("null_shapes", nullShapes),
			zap.Int("unparseable_values", badValues),
		)
	}
	return nil
}

// value converts a raw DBF attribute to its Go value. Blank values are nil;
// the bool is false when a non-blank value could not be parsed.
func (r *Reader) value(f Field, raw string) (any, bool) {
	val := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if val == "" {
		return nil, true
	}

	switch f.Kind {
	case FieldInteger:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			// Wide numeric columns can still hold decimals; keep them.
			fl, ferr := strconv.ParseFloat(val, 64)
			if ferr != nil {
				return nil, false
			}
			if fl == math.Trunc(fl) && math.Abs(fl) < 1<<53 {
				return int64(fl), true
			}
			return fl, true
		}
		return n, true

	case FieldReal:
		fl, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, false
		}
		return fl, true

	case FieldBoolean:
		switch val {
		case "T", "t", "Y", "y":
			return true, true
		case "F", "f", "N", "n":
			return false, true
		case "?":
			return nil, true
		}
		return nil, false

	case FieldDate:
		d, err := time.Parse("20060102", val)
		if err != nil {
			return nil, false
		}
		return d.Format(time.DateOnly), true

	default:
		if r.decoder == nil {
			return val, true
		}
		s, err := r.decoder.String(val)
		if err != nil {
			return val, false
		}
		return s, true
	}
}

func fieldKind(f shp.Field) FieldKind {
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return FieldInteger
		}
		return FieldReal
	case 'F', 'O':
		return FieldReal
	case 'I':
		return FieldInteger
	case 'L':
		return FieldBoolean
	case 'D':
		return FieldDate
	default:
		return FieldText
	}
}

// Name returns the feature class name of a shapefile path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sidecar returns the path of a companion file. The extension is matched
// case-insensitively, preferring the case of the .shp extension.
func sidecar(shpPath, ext string) string {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))

	candidates := []string{base + ext, base + strings.ToUpper(ext)}
	if filepath.Ext(shpPath) == strings.ToUpper(filepath.Ext(shpPath)) {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}

	want := filepath.Base(base) + ext
	if entries, err := os.ReadDir(filepath.Dir(shpPath)); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(e.Name(), want) {
				return filepath.Join(filepath.Dir(shpPath), e.Name())
			}
		}
	}
	return base + ext
}

// lowercaseView returns a path go-shp can open. go-shp swaps the last three
// characters of the path for "shp" and "dbf", so a shapefile whose .shp or
// .dbf is not named in lowercase is linked into a temporary directory under
// lowercase names. cleanup removes that directory.
func lowercaseView(path string) (string, func(), error) {
	noop := func() {}
	dbf := sidecar(path, ".dbf")
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if filepath.Ext(path) == ".shp" && dbf == base+".dbf" {
		return path, noop, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", noop, eris.Wrapf(err, "shapefile: resolve %s", path)
	}
	absDBF, err := filepath.Abs(dbf)
	if err != nil {
		return "", noop, eris.Wrapf(err, "shapefile: resolve %s", dbf)
	}

	dir, err := os.MkdirTemp("", "shapefile-")
	if err != nil {
		return "", noop, eris.Wrap(err, "shapefile: create link directory")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := filepath.Join(dir, "layer")
	if err := os.Symlink(abs, name+".shp"); err != nil {
		cleanup()
		return "", noop, eris.Wrapf(err, "shapefile: link %s", path)
	}
	if _, err := os.Stat(absDBF); err == nil {
		if err := os.Symlink(absDBF, name+".dbf"); err != nil {
			cleanup()
			return "", noop, eris.Wrapf(err, "shapefile: link %s", dbf)
		}
	}
	return name + ".shp", cleanup, nil
}
