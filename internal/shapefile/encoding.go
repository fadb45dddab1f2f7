package shapefile

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCodePage decodes DBF text when a shapefile has no .cpg sidecar.
var DefaultCodePage encoding.Encoding = charmap.Windows1252

// codePage resolves the .cpg sidecar next to shpPath. A nil encoding means
// the attribute bytes are already UTF-8.
func codePage(shpPath string) (encoding.Encoding, error) {
	data, err := os.ReadFile(sidecar(shpPath, ".cpg"))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCodePage, nil
		}
		return nil, eris.Wrapf(err, "shapefile: read code page for %s", shpPath)
	}
	return lookupCodePage(string(data))
}

// lookupCodePage maps the names ArcGIS and GDAL write into .cpg files
// ("UTF-8", "1252", "ANSI 1252", "88591", ...) to an encoding.
func lookupCodePage(name string) (encoding.Encoding, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ANSI ")
	n = strings.TrimPrefix(n, "CP")

	switch {
	case n == "":
		return DefaultCodePage, nil
	case n == "UTF-8" || n == "UTF8" || n == "65001":
		return nil, nil
	case len(n) == 4 && strings.HasPrefix(n, "125"):
		n = "windows-" + n
	case strings.HasPrefix(n, "8859"):
		n = "ISO-8859-" + strings.TrimLeft(strings.TrimPrefix(n, "8859"), "_-")
	case n == "437" || n == "850" || n == "866":
		n = "IBM" + n
	}

	enc, err := ianaindex.IANA.Encoding(n)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: unknown code page %q", name)
	}
	if enc == nil {
		return nil, eris.Errorf("shapefile: unsupported code page %q", name)
	}
	return enc, nil
}
