package gdb

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// GeoPackage geometry blob header flags.
const (
	flagLittleEndian = 0x01
	flagEnvelopeXY   = 0x02
	flagEmpty        = 0x10
)

// EncodeGeometry writes g as a GeoPackage geometry blob: the "GP" header
// with srs id and XY envelope, followed by little-endian WKB. A nil
// geometry encodes to nil.
func EncodeGeometry(g geom.T, srsID int32) ([]byte, error) {
	if g == nil {
		return nil, nil
	}

	body, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "gdb: encode WKB")
	}

	empty := len(g.FlatCoords()) == 0
	flags := byte(flagLittleEndian)
	if empty {
		flags |= flagEmpty
	} else {
		flags |= flagEnvelopeXY
	}

	var buf bytes.Buffer
	buf.Grow(8 + 32 + len(body))
	buf.Write([]byte{'G', 'P', 0, flags})
	_ = binary.Write(&buf, binary.LittleEndian, srsID)
	if !empty {
		b := g.Bounds()
		_ = binary.Write(&buf, binary.LittleEndian, [4]float64{b.Min(0), b.Max(0), b.Min(1), b.Max(1)})
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeGeometry parses a GeoPackage geometry blob.
func DecodeGeometry(data []byte) (geom.T, int32, error) {
	if len(data) < 8 || data[0] != 'G' || data[1] != 'P' {
		return nil, 0, eris.New("gdb: not a GeoPackage geometry")
	}

	flags := data[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(data[4:8]))

	var envelope int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return nil, 0, eris.Errorf("gdb: bad envelope indicator in flags %#x", flags)
	}
	if len(data) < 8+envelope {
		return nil, 0, eris.New("gdb: truncated geometry header")
	}

	g, err := wkb.Unmarshal(data[8+envelope:])
	if err != nil {
		return nil, 0, eris.Wrap(err, "gdb: decode WKB")
	}
	return g, srsID, nil
}

// boundsOrNil returns the envelope values for gpkg_contents, or nils when
// the bounds are not finite.
func boundsOrNil(b *geom.Bounds) []any {
	vals := []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	out := make([]any, len(vals))
	for i, v := range vals {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return []any{nil, nil, nil, nil}
		}
		out[i] = v
	}
	return out
}
