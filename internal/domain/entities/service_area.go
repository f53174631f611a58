package entities

import "github.com/paulmach/orb/geojson"

// Coordinates is a WGS84 point
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// ServiceAreaHex is one hexagonal cell of a rendered coverage area
type ServiceAreaHex struct {
	ID       string        `json:"id"`
	Center   Coordinates   `json:"center"`
	Boundary []Coordinates `json:"boundary"`
}

// ServiceAreaState is the terminal state of a service-area render
type ServiceAreaState string

const (
	ServiceAreaStateReady      ServiceAreaState = "ready"
	ServiceAreaStateNoLocation ServiceAreaState = "no_location"
)

// ServiceArea is the computed coverage overlay for a provider
type ServiceArea struct {
	State       ServiceAreaState `json:"state"`
	HasLocation bool             `json:"hasLocation"`
	Center      *Coordinates     `json:"center,omitempty"`
	RadiusMiles float64          `json:"radiusMiles"`
	RadiusKm    float64          `json:"radiusKm"`
	Resolution  int              `json:"resolution"`
	Zoom        int              `json:"zoom"`
	Hexes       []ServiceAreaHex `json:"hexes"`
	Summary     string           `json:"summary"`
	// Geocoded is true when the center came from an address lookup
	Geocoded bool `json:"geocoded"`
	// GeoJSON draws the hexes, the dashed radius circle and the center marker
	GeoJSON *geojson.FeatureCollection `json:"geojson,omitempty"`
}

// ServiceAreaRequest carries what a provider knows about its location
type ServiceAreaRequest struct {
	Latitude      *float64
	Longitude     *float64
	ServiceRadius float64
	City          string
	State         string
	Address       string
}
