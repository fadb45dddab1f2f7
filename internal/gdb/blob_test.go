package gdb

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestEncodeGeometry_Point(t *testing.T) {
	p := geom.NewPointFlat(geom.XY, []float64{1200000.5, 450000.25})

	blob, err := EncodeGeometry(p, 3005)
	require.NoError(t, err)

	assert.Equal(t, []byte{'G', 'P', 0, flagLittleEndian | flagEnvelopeXY}, blob[:4])
	assert.Equal(t, uint32(3005), binary.LittleEndian.Uint32(blob[4:8]))
	minX := math.Float64frombits(binary.LittleEndian.Uint64(blob[8:16]))
	maxY := math.Float64frombits(binary.LittleEndian.Uint64(blob[32:40]))
	assert.Equal(t, 1200000.5, minX)
	assert.Equal(t, 450000.25, maxY)

	g, srsID, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, int32(3005), srsID)
	assert.Equal(t, p.FlatCoords(), g.FlatCoords())
}

func TestEncodeGeometry_MultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0, 2, 2, 2, 8, 8, 8, 8, 2, 2, 2},
		[][]int{{10, 20}},
	)

	blob, err := EncodeGeometry(mp, -1)
	require.NoError(t, err)

	g, srsID, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), srsID)
	got, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, got.NumPolygons())
	assert.Equal(t, 2, got.Polygon(0).NumLinearRings())
	assert.InDelta(t, 64.0, got.Area(), 1e-9)
}

func TestEncodeGeometry_Empty(t *testing.T) {
	blob, err := EncodeGeometry(geom.NewMultiPolygon(geom.XY), 4326)
	require.NoError(t, err)
	assert.Equal(t, byte(flagLittleEndian|flagEmpty), blob[3])

	g, _, err := DecodeGeometry(blob)
	require.NoError(t, err)
	assert.Empty(t, g.FlatCoords())
}

func TestEncodeGeometry_Nil(t *testing.T) {
	blob, err := EncodeGeometry(nil, 4326)
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestDecodeGeometry_Invalid(t *testing.T) {
	_, _, err := DecodeGeometry([]byte("nope"))
	assert.Error(t, err)

	_, _, err = DecodeGeometry([]byte{'G', 'P', 0, 0x0F, 0, 0, 0, 0})
	assert.Error(t, err)

	_, _, err = DecodeGeometry([]byte{'G', 'P', 0, flagLittleEndian | flagEnvelopeXY, 0, 0, 0, 0, 1, 2})
	assert.Error(t, err)
}

func TestBoundsOrNil(t *testing.T) {
	b := geom.NewBounds(geom.XY).Set(1, 2, 3, 4)
	assert.Equal(t, []any{1.0, 2.0, 3.0, 4.0}, boundsOrNil(b))

	empty := geom.NewBounds(geom.XY)
	assert.Equal(t, []any{nil, nil, nil, nil}, boundsOrNil(empty))
}
