package geo

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilesToKm(t *testing.T) {
	assert.InDelta(t, 16.0934, MilesToKm(10), 1e-9)
	assert.Equal(t, 0.0, MilesToKm(0))
}

func TestHaversineKm(t *testing.T) {
	austin := orb.Point{-97.7431, 30.2672}
	dallas := orb.Point{-96.7970, 32.7767}

	d := HaversineKm(austin, dallas)
	assert.InDelta(t, 292, d, 3)
	assert.InDelta(t, d, HaversineKm(dallas, austin), 1e-9)
	assert.Equal(t, 0.0, HaversineKm(austin, austin))
}

func TestHexEdgeLengthKm(t *testing.T) {
	edge, err := HexEdgeLengthKm(6)
	require.NoError(t, err)
	assert.InDelta(t, 3.724532667, edge, 1e-12)

	_, err = HexEdgeLengthKm(-1)
	assert.Error(t, err)
	_, err = HexEdgeLengthKm(MaxResolution + 1)
	assert.Error(t, err)

	for res := 1; res <= MaxResolution; res++ {
		assert.Less(t, edgeLengthsKm[res], edgeLengthsKm[res-1])
	}
}

func TestRingSize(t *testing.T) {
	edge := edgeLengthsKm[6]

	assert.Equal(t, 0, RingSize(0, edge))
	assert.Equal(t, 1, RingSize(edge*1.5, edge))
	assert.Equal(t, 2, RingSize(edge*1.5+0.001, edge))
	assert.Equal(t, 3, RingSize(MilesToKm(10), edge))
}

func TestCellCount(t *testing.T) {
	assert.Equal(t, 1, CellCount(0))
	assert.Equal(t, 7, CellCount(1))
	assert.Equal(t, 19, CellCount(2))
	assert.Equal(t, 37, CellCount(3))
}

func TestHexesInRadius_CentersWithinRadius(t *testing.T) {
	centers := []orb.Point{
		{-97.7431, 30.2672},
		{-0.1276, 51.5072},
		{151.2093, -33.8688},
		{179.99, 64.5},
	}

	for _, c := range centers {
		for _, miles := range []float64{1, 10, 25, 60} {
			hexes, err := HexesInRadius(c.Lat(), c.Lon(), miles, 6)
			require.NoError(t, err)
			require.NotEmpty(t, hexes)

			radiusKm := MilesToKm(miles)
			for _, h := range hexes {
				assert.LessOrEqual(t, HaversineKm(c, h.Center), radiusKm,
					"hex %s outside %.1f mi of %v", h.ID, miles, c)
			}
		}
	}
}

func TestHexesInRadius_RingBound(t *testing.T) {
	hexes, err := HexesInRadius(30.2672, -97.7431, 10, 6)
	require.NoError(t, err)

	k := RingSize(MilesToKm(10), edgeLengthsKm[6])
	assert.LessOrEqual(t, len(hexes), CellCount(k))
	assert.Greater(t, len(hexes), CellCount(k-1)/2)

	for _, h := range hexes {
		assert.LessOrEqual(t, max(abs(h.Q), abs(h.R), abs(h.Q+h.R)), k)
	}
}

func TestHexesInRadius_CenterCellAndIDs(t *testing.T) {
	hexes, err := HexesInRadius(30.2672, -97.7431, 5, 6)
	require.NoError(t, err)

	ids := map[string]bool{}
	var found bool
	for _, h := range hexes {
		assert.False(t, ids[h.ID], "duplicate id %s", h.ID)
		ids[h.ID] = true
		assert.Len(t, h.Boundary, 6)
		if h.Q == 0 && h.R == 0 {
			found = true
			assert.Equal(t, "6:0:0", h.ID)
			assert.InDelta(t, 30.2672, h.Center.Lat(), 1e-9)
			assert.InDelta(t, -97.7431, h.Center.Lon(), 1e-9)
		}
	}
	assert.True(t, found, "centre cell missing")
}

func TestHexesInRadius_BoundaryEdgeLength(t *testing.T) {
	hexes, err := HexesInRadius(0, 0, 1, 6)
	require.NoError(t, err)

	center := hexes[len(hexes)/2]
	for _, v := range center.Boundary {
		assert.InDelta(t, edgeLengthsKm[6], HaversineKm(center.Center, v), 0.01)
	}
}

func TestHexesInRadius_ZeroRadius(t *testing.T) {
	hexes, err := HexesInRadius(30.2672, -97.7431, 0, 6)
	require.NoError(t, err)
	require.Len(t, hexes, 1)
	assert.Equal(t, "6:0:0", hexes[0].ID)
}

func TestHexesInRadius_InvalidInput(t *testing.T) {
	_, err := HexesInRadius(30, -97, -1, 6)
	assert.Error(t, err)

	_, err = HexesInRadius(30, -97, math.NaN(), 6)
	assert.Error(t, err)

	_, err = HexesInRadius(30, -97, 10, 16)
	assert.Error(t, err)
}

func TestZoomForRadius(t *testing.T) {
	cases := map[float64]int{
		0: 9, 10: 9, 10.5: 8, 25: 8, 26: 7, 50: 7, 75: 6, 100: 6, 101: 5, 500: 5,
	}
	for miles, zoom := range cases {
		assert.Equal(t, zoom, ZoomForRadius(miles), "radius %v", miles)
	}
}

func TestWrapLongitude(t *testing.T) {
	assert.InDelta(t, -179.5, wrapLongitude(180.5), 1e-9)
	assert.InDelta(t, 179.5, wrapLongitude(-180.5), 1e-9)
	assert.Equal(t, 45.0, wrapLongitude(45))
}

func TestFeatureCollection(t *testing.T) {
	tiling, err := NewTiling(6, 0, 4)
	require.NoError(t, err)

	area, err := tiling.Compute(30.2672, -97.7431, 5)
	require.NoError(t, err)

	fc := FeatureCollection(area)
	require.Len(t, fc.Features, len(area.Hexes)+2)

	hex := fc.Features[0]
	poly, ok := hex.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.True(t, poly[0].Closed())
	assert.Len(t, poly[0], 7)
	assert.Equal(t, "hex", hex.Properties["kind"])

	circle := fc.Features[len(fc.Features)-2]
	assert.Equal(t, "dashed", circle.Properties["style"])
	ring := circle.Geometry.(orb.Polygon)[0]
	assert.Len(t, ring, circleSegments+1)
	for _, p := range ring {
		assert.InDelta(t, area.RadiusKm, HaversineKm(area.Center, p), 0.01)
	}

	marker := fc.Features[len(fc.Features)-1]
	assert.Equal(t, area.Center, marker.Geometry)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
