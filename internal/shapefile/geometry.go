package shapefile

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ToGeom converts a go-shp shape to a go-geom geometry. Z and M values are
// dropped. Returns nil for null, empty or unsupported shapes.
func ToGeom(shape shp.Shape) geom.T {
	if shape == nil {
		return nil
	}

	switch s := shape.(type) {
	case *shp.Null:
		return nil

	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})

	case *shp.MultiPoint:
		return multiPoint(s.Points)
	case *shp.MultiPointZ:
		return multiPoint(s.Points)
	case *shp.MultiPointM:
		return multiPoint(s.Points)

	case *shp.PolyLine:
		return multiLineString(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return multiLineString(s.Parts, s.Points)
	case *shp.PolyLineM:
		return multiLineString(s.Parts, s.Points)

	case *shp.Polygon:
		return multiPolygon(s.Parts, s.Points)
	case *shp.PolygonZ:
		return multiPolygon(s.Parts, s.Points)
	case *shp.PolygonM:
		return multiPolygon(s.Parts, s.Points)

	default:
		zap.L().Debug("shapefile: unsupported shape", zap.String("type", fmt.Sprintf("%T", shape)))
		return nil
	}
}

// GeometryTypeName returns the GeoPackage geometry type name stored for a
// shapefile shape type.
func GeometryTypeName(t shp.ShapeType) string {
	switch t {
	case shp.POINT, shp.POINTZ, shp.POINTM:
		return "POINT"
	case shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return "MULTIPOINT"
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return "MULTILINESTRING"
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return "MULTIPOLYGON"
	default:
		return "GEOMETRY"
	}
}

func multiPoint(points []shp.Point) geom.T {
	if len(points) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewMultiPointFlat(geom.XY, flat)
}

// multiLineString converts shapefile parts to a geom.MultiLineString.
func multiLineString(parts []int32, points []shp.Point) geom.T {
	mls := geom.NewMultiLineString(geom.XY)

	for i, flat := range splitParts(parts, points) {
		if len(flat) < 4 {
			zap.L().Debug("shapefile: skipping short linestring part", zap.Int("part", i))
			continue
		}
		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// multiPolygon converts shapefile rings to a geom.MultiPolygon. Shapefiles
// store outer rings clockwise and holes counter-clockwise; each hole belongs
// to the outer ring preceding it. Rings are rewound to OGC order: outer rings
// counter-clockwise, holes clockwise.
func multiPolygon(parts []int32, points []shp.Point) geom.T {
	mp := geom.NewMultiPolygon(geom.XY)
	var cur *geom.Polygon

	flush := func() {
		if cur == nil {
			return
		}
		if err := mp.Push(cur); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Error(err))
		}
		cur = nil
	}

	for i, flat := range splitParts(parts, points) {
		if len(flat) < 8 {
			zap.L().Debug("shapefile: skipping degenerate ring", zap.Int("part", i))
			continue
		}
		area := signedArea(flat)
		outer := cur == nil || area <= 0
		if outer == (area < 0) {
			reverseRing(flat)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if outer {
			flush()
			cur = geom.NewPolygon(geom.XY)
		}
		if err := cur.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon ring", zap.Int("part", i), zap.Error(err))
			continue
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// splitParts slices a shape's point array into flat XY coordinates per part.
func splitParts(parts []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

// signedArea is the shoelace area of a flat XY ring: negative when the ring
// runs clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}

// reverseRing reverses the point order of a flat XY ring in place.
func reverseRing(flat []float64) {
	for i, j := 0, len(flat)-2; i < j; i, j = i+2, j-2 {
		flat[i], flat[j] = flat[j], flat[i]
		flat[i+1], flat[j+1] = flat[j+1], flat[i+1]
	}
}
