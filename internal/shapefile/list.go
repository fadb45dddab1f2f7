// Package shapefile discovers and reads ESRI shapefiles.
package shapefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// List returns the absolute paths of the shapefiles directly inside dir,
// sorted by file name. Subdirectories are not searched.
func List(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: resolve %s", dir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: list %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".shp") {
			continue
		}
		paths = append(paths, filepath.Join(abs, e.Name()))
	}
	return paths, nil
}
