// Package spatialref reads coordinate system definitions from .prj files.
package spatialref

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrInvalidProjection is returned for definitions that are not a usable
// WKT coordinate system.
var ErrInvalidProjection = eris.New("invalid projection")

// Kind classifies a coordinate system by its root WKT keyword.
type Kind string

// Coordinate system kinds.
const (
	KindProjected  Kind = "projected"
	KindGeographic Kind = "geographic"
	KindGeocentric Kind = "geocentric"
	KindCompound   Kind = "compound"
	KindVertical   Kind = "vertical"
	KindLocal      Kind = "local"
)

var rootKinds = map[string]Kind{
	"PROJCS":      KindProjected,
	"PROJCRS":     KindProjected,
	"GEOGCS":      KindGeographic,
	"GEOGCRS":     KindGeographic,
	"GEOCCS":      KindGeocentric,
	"GEODCRS":     KindGeocentric,
	"COMPD_CS":    KindCompound,
	"COMPOUNDCRS": KindCompound,
	"VERT_CS":     KindVertical,
	"VERTCRS":     KindVertical,
	"LOCAL_CS":    KindLocal,
}

// esriCodes maps ESRI coordinate system names, which .prj files written by
// ArcGIS carry without an AUTHORITY clause, to their EPSG codes.
var esriCodes = map[string]int{
	"GCS_WGS_1984":                           4326,
	"GCS_North_American_1983":                4269,
	"GCS_North_American_1983_CSRS":           4617,
	"GCS_North_American_1927":                4267,
	"NAD_1983_BC_Environment_Albers":         3005,
	"NAD_1983_CSRS_BC_Environment_Albers":    3153,
	"NAD_1983_UTM_Zone_8N":                   26908,
	"NAD_1983_UTM_Zone_9N":                   26909,
	"NAD_1983_UTM_Zone_10N":                  26910,
	"NAD_1983_UTM_Zone_11N":                  26911,
	"NAD_1983_CSRS_UTM_Zone_9N":              3156,
	"NAD_1983_CSRS_UTM_Zone_10N":             3157,
	"WGS_1984_UTM_Zone_9N":                   32609,
	"WGS_1984_UTM_Zone_10N":                  32610,
	"WGS_1984_Web_Mercator_Auxiliary_Sphere": 3857,
}

// SpatialReference describes one coordinate system.
type SpatialReference struct {
	Name      string
	Kind      Kind
	Authority string // "EPSG" when Code is known
	Code      int
	WKT       string
	Source    string // file the definition was read from, if any
}

// HasCode reports whether the reference resolved to an authority code.
func (sr SpatialReference) HasCode() bool {
	return sr.Authority != "" && sr.Code > 0
}

// Equal reports whether two references describe the same coordinate system.
// Authority codes win when both sides have one; otherwise the definitions
// are compared ignoring whitespace.
func (sr SpatialReference) Equal(other SpatialReference) bool {
	if sr.HasCode() && other.HasCode() {
		return strings.EqualFold(sr.Authority, other.Authority) && sr.Code == other.Code
	}
	return compact(sr.WKT) == compact(other.WKT)
}

func (sr SpatialReference) String() string {
	if sr.HasCode() {
		return sr.Name + " (" + sr.Authority + ":" + strconv.Itoa(sr.Code) + ")"
	}
	return sr.Name
}

// Parse builds a SpatialReference from a WKT definition.
func Parse(wkt string) (SpatialReference, error) {
	wkt = strings.TrimSpace(strings.TrimPrefix(wkt, "\ufeff"))
	if wkt == "" {
		return SpatialReference{}, eris.Wrap(ErrInvalidProjection, "spatialref: empty definition")
	}

	root, err := ParseWKT(wkt)
	if err != nil {
		return SpatialReference{}, err
	}

	kind, ok := rootKinds[root.Keyword]
	if !ok {
		return SpatialReference{}, eris.Wrapf(ErrInvalidProjection, "spatialref: %s is not a coordinate system", root.Keyword)
	}
	if root.Name() == "" {
		return SpatialReference{}, eris.Wrapf(ErrInvalidProjection, "spatialref: %s has no name", root.Keyword)
	}

	sr := SpatialReference{
		Name: root.Name(),
		Kind: kind,
		WKT:  wkt,
	}
	sr.Authority, sr.Code = authority(root)
	if !sr.HasCode() {
		if code, ok := esriCodes[sr.Name]; ok {
			sr.Authority, sr.Code = "EPSG", code
		}
	}
	return sr, nil
}

// FromFile reads and parses a .prj file.
func FromFile(path string) (SpatialReference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SpatialReference{}, eris.Wrapf(err, "spatialref: read %s", path)
	}

	sr, err := Parse(string(data))
	if err != nil {
		return SpatialReference{}, eris.Wrapf(err, "spatialref: parse %s", path)
	}
	sr.Source = path

	zap.L().Debug("spatial reference loaded",
		zap.String("component", "spatialref"),
		zap.String("path", path),
		zap.String("name", sr.Name),
		zap.Int("code", sr.Code),
	)
	return sr, nil
}

// authority extracts the top-level AUTHORITY (WKT1) or ID (WKT2) clause.
func authority(root *Node) (string, int) {
	n := root.Child("AUTHORITY")
	if n == nil {
		n = root.Child("ID")
	}
	if n == nil || len(n.Args) < 2 {
		return "", 0
	}

	var code int
	switch v := n.Args[1].(type) {
	case string:
		c, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return "", 0
		}
		code = c
	case float64:
		code = int(v)
	default:
		return "", 0
	}
	return strings.ToUpper(n.Name()), code
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
