package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const circleSegments = 64

// Circle approximates a circle of radiusKm around center with a closed ring.
func Circle(center orb.Point, radiusKm float64, segments int) orb.Ring {
	if segments < 3 {
		segments = circleSegments
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, destination(center, radiusKm, bearing))
	}
	return append(ring, ring[0])
}

// destination moves distanceKm from start along bearing (radians from north).
func destination(start orb.Point, distanceKm, bearing float64) orb.Point {
	lat1 := toRadians(start.Lat())
	lng1 := toRadians(start.Lon())
	d := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearing)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return orb.Point{wrapLongitude(toDegrees(lng2)), toDegrees(lat2)}
}

// FeatureCollection renders an area as GeoJSON: one polygon per hex, the
// dashed radius circle and a centre marker.
func FeatureCollection(area *Area) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, hex := range area.Hexes {
		ring := append(orb.Ring{}, hex.Boundary...)
		if len(ring) > 0 && !ring.Closed() {
			ring = append(ring, ring[0])
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = hex.ID
		f.Properties["kind"] = "hex"
		f.Properties["resolution"] = area.Resolution
		fc.Append(f)
	}

	circle := geojson.NewFeature(orb.Polygon{Circle(area.Center, area.RadiusKm, circleSegments)})
	circle.Properties["kind"] = "radius"
	circle.Properties["style"] = "dashed"
	circle.Properties["radiusMiles"] = area.RadiusMiles
	fc.Append(circle)

	center := geojson.NewFeature(area.Center)
	center.Properties["kind"] = "center"
	fc.Append(center)

	return fc
}
