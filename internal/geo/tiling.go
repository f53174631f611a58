package geo

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
)

// DefaultMaxRings bounds how many rings a single tiling may enumerate.
// Larger radii are drawn at a coarser resolution instead.
const DefaultMaxRings = 40

// Area is a computed tiling with the values needed to draw it.
type Area struct {
	Center      orb.Point
	RadiusMiles float64
	RadiusKm    float64
	Resolution  int
	Zoom        int
	Hexes       []Hex
}

type tilingKey struct {
	lat, lng, radiusMiles float64
}

// Tiling computes service-area tilings at a fixed resolution and memoizes
// them by (centre, radius). Safe for concurrent use.
type Tiling struct {
	resolution int
	maxRings   int
	memo       *lru.Cache[tilingKey, *Area]
}

// NewTiling creates a Tiling at resolution with room for cacheSize results.
func NewTiling(resolution, maxRings, cacheSize int) (*Tiling, error) {
	if _, err := HexEdgeLengthKm(resolution); err != nil {
		return nil, err
	}
	if maxRings <= 0 {
		maxRings = DefaultMaxRings
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}
	memo, err := lru.New[tilingKey, *Area](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tiling cache: %w", err)
	}
	return &Tiling{resolution: resolution, maxRings: maxRings, memo: memo}, nil
}

// Resolution is the preferred resolution of this tiling.
func (t *Tiling) Resolution() int {
	return t.resolution
}

// Compute returns the tiling for a centre and radius in miles. The returned
// Area is shared between callers and must not be modified.
func (t *Tiling) Compute(lat, lng, radiusMiles float64) (*Area, error) {
	key := tilingKey{lat: lat, lng: lng, radiusMiles: radiusMiles}
	if area, ok := t.memo.Get(key); ok {
		return area, nil
	}

	resolution := t.resolutionFor(MilesToKm(radiusMiles))
	hexes, err := HexesInRadius(lat, lng, radiusMiles, resolution)
	if err != nil {
		return nil, err
	}

	area := &Area{
		Center:      orb.Point{lng, lat},
		RadiusMiles: radiusMiles,
		RadiusKm:    MilesToKm(radiusMiles),
		Resolution:  resolution,
		Zoom:        ZoomForRadius(radiusMiles),
		Hexes:       hexes,
	}
	t.memo.Add(key, area)
	return area, nil
}

// resolutionFor steps down from the preferred resolution until the ring
// count fits maxRings.
func (t *Tiling) resolutionFor(radiusKm float64) int {
	res := t.resolution
	for res > 0 && RingSize(radiusKm, edgeLengthsKm[res]) > t.maxRings {
		res--
	}
	return res
}
