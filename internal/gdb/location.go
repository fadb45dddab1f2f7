package gdb

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Location addresses a geodatabase root or one of its feature datasets, in
// the form <folder>/<name>.gdb[/<dataset>].
type Location struct {
	Geodatabase string
	Dataset     string
}

// String returns the location as a path.
func (l Location) String() string {
	if l.Dataset == "" {
		return l.Geodatabase
	}
	return filepath.Join(l.Geodatabase, l.Dataset)
}

// IsGeodatabasePath reports whether p names a geodatabase file by extension.
func IsGeodatabasePath(p string) bool {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(p)))
	return ext == ".gdb" || ext == ".gpkg"
}

// ParseLocation splits p into its geodatabase and dataset parts. The
// geodatabase is the last or second-to-last path element when it ends in
// .gdb or .gpkg and is not a directory; Esri file geodatabases are
// directories and are treated as plain folders.
func ParseLocation(p string) (Location, error) {
	slashed := filepath.ToSlash(filepath.Clean(p))
	parts := strings.Split(slashed, "/")

	for i := len(parts) - 1; i >= 0 && i >= len(parts)-2; i-- {
		if !IsGeodatabasePath(parts[i]) {
			continue
		}
		gdbPath := filepath.FromSlash(strings.Join(parts[:i+1], "/"))
		if info, err := os.Stat(gdbPath); err == nil && info.IsDir() {
			break
		}
		loc := Location{Geodatabase: gdbPath}
		if i < len(parts)-1 {
			loc.Dataset = parts[i+1]
		}
		return loc, nil
	}
	return Location{}, eris.Wrapf(ErrInvalidName, "gdb: %s is not inside a geodatabase", p)
}
