// Package geo computes hexagonal tilings that approximate a circular service
// area. The grid is pointy-topped axial hexagons laid out on a local
// equirectangular projection centred on the requested point, so cell ids are
// only meaningful together with the centre they were computed for.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// EarthRadiusKm is the mean earth radius used for every distance here.
	EarthRadiusKm = 6371.0

	// KmPerMile converts service radii, which are stored in miles.
	KmPerMile = 1.60934

	// DefaultResolution is the resolution service areas are drawn at.
	DefaultResolution = 6
)

// edgeLengthsKm is the average hexagon edge length per resolution, the same
// scale as the H3 global grid.
var edgeLengthsKm = [...]float64{
	1281.256011,
	483.0568391,
	182.5129565,
	68.97922179,
	26.07175968,
	9.854090990,
	3.724532667,
	1.406475763,
	0.531414010,
	0.200786148,
	0.075863783,
	0.028663897,
	0.010830188,
	0.004092010,
	0.001546100,
	0.000584169,
}

// MaxResolution is the finest supported resolution.
const MaxResolution = len(edgeLengthsKm) - 1

var sqrt3 = math.Sqrt(3)

// Hex is one grid cell. Boundary holds the six vertices in counter-clockwise
// order without repeating the first one.
type Hex struct {
	ID       string
	Q, R     int
	Center   orb.Point
	Boundary orb.Ring
}

// MilesToKm converts miles to kilometres.
func MilesToKm(miles float64) float64 {
	return miles * KmPerMile
}

// HaversineKm is the great-circle distance between two points in km.
func HaversineKm(a, b orb.Point) float64 {
	lat1, lat2 := toRadians(a.Lat()), toRadians(b.Lat())
	dLat := lat2 - lat1
	dLng := toRadians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HexEdgeLengthKm returns the edge length for resolution, or an error when
// resolution is outside 0..MaxResolution.
func HexEdgeLengthKm(resolution int) (float64, error) {
	if resolution < 0 || resolution > MaxResolution {
		return 0, fmt.Errorf("hex resolution %d out of range 0..%d", resolution, MaxResolution)
	}
	return edgeLengthsKm[resolution], nil
}

// RingSize is the number of rings around the centre cell needed to cover
// radiusKm.
func RingSize(radiusKm, edgeKm float64) int {
	if radiusKm <= 0 || edgeKm <= 0 {
		return 0
	}
	return int(math.Ceil(radiusKm / (edgeKm * 1.5)))
}

// CellCount is the number of cells within k rings of a cell.
func CellCount(k int) int {
	return 3*k*(k+1) + 1
}

// HexesInRadius returns every cell within RingSize rings of the centre whose
// centre lies within radiusMiles of (lat, lng).
func HexesInRadius(lat, lng, radiusMiles float64, resolution int) ([]Hex, error) {
	edge, err := HexEdgeLengthKm(resolution)
	if err != nil {
		return nil, err
	}
	if radiusMiles < 0 || math.IsNaN(radiusMiles) || math.IsInf(radiusMiles, 0) {
		return nil, fmt.Errorf("invalid service radius %v", radiusMiles)
	}

	center := orb.Point{lng, lat}
	radiusKm := MilesToKm(radiusMiles)
	proj := newProjection(center)
	k := RingSize(radiusKm, edge)

	hexes := make([]Hex, 0, CellCount(k))
	for q := -k; q <= k; q++ {
		for r := max(-k, -q-k); r <= min(k, -q+k); r++ {
			cellCenter := proj.toPoint(axialToPlane(q, r, edge))
			if HaversineKm(center, cellCenter) > radiusKm {
				continue
			}
			hexes = append(hexes, Hex{
				ID:       fmt.Sprintf("%d:%d:%d", resolution, q, r),
				Q:        q,
				R:        r,
				Center:   cellCenter,
				Boundary: hexBoundary(proj, q, r, edge),
			})
		}
	}
	return hexes, nil
}

// ZoomForRadius picks a map zoom level that fits the service radius.
func ZoomForRadius(radiusMiles float64) int {
	switch {
	case radiusMiles <= 10:
		return 9
	case radiusMiles <= 25:
		return 8
	case radiusMiles <= 50:
		return 7
	case radiusMiles <= 100:
		return 6
	default:
		return 5
	}
}

// planar is a position in km east/north of the projection origin.
type planar struct{ x, y float64 }

func axialToPlane(q, r int, size float64) planar {
	return planar{
		x: size * sqrt3 * (float64(q) + float64(r)/2),
		y: size * 1.5 * float64(r),
	}
}

func hexBoundary(proj projection, q, r int, size float64) orb.Ring {
	c := axialToPlane(q, r, size)
	ring := make(orb.Ring, 0, 6)
	for i := 0; i < 6; i++ {
		angle := toRadians(float64(60*i + 30))
		ring = append(ring, proj.toPoint(planar{
			x: c.x + size*math.Cos(angle),
			y: c.y + size*math.Sin(angle),
		}))
	}
	return ring
}

// projection is an equirectangular projection around origin.
type projection struct {
	origin orb.Point
	cosLat float64
}

func newProjection(origin orb.Point) projection {
	cosLat := math.Cos(toRadians(origin.Lat()))
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	return projection{origin: origin, cosLat: cosLat}
}

func (p projection) toPoint(v planar) orb.Point {
	lat := p.origin.Lat() + toDegrees(v.y/EarthRadiusKm)
	lng := p.origin.Lon() + toDegrees(v.x/(EarthRadiusKm*p.cosLat))
	return orb.Point{wrapLongitude(lng), clampLatitude(lat)}
}

func wrapLongitude(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

func clampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
