package geolocation

import (
	"context"
	"sort"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
)

var mockCoordinates = map[string]entities.Coordinates{
	"new york":    {Latitude: 40.7128, Longitude: -74.0060},
	"los angeles": {Latitude: 34.0522, Longitude: -118.2437},
	"chicago":     {Latitude: 41.8781, Longitude: -87.6298},
	"houston":     {Latitude: 29.7604, Longitude: -95.3698},
	"phoenix":     {Latitude: 33.4484, Longitude: -112.0740},
	"austin":      {Latitude: 30.2672, Longitude: -97.7431},
	"dallas":      {Latitude: 32.7767, Longitude: -96.7970},
	"miami":       {Latitude: 25.7617, Longitude: -80.1918},
	"nashville":   {Latitude: 36.1627, Longitude: -86.7816},
	"springfield": {Latitude: 39.7817, Longitude: -89.6501},
}

// MockGeolocationProvider resolves a fixed set of US cities offline
type MockGeolocationProvider struct {
	known map[string]entities.Coordinates
	names []string
}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() *MockGeolocationProvider {
	names := make([]string, 0, len(mockCoordinates))
	for name := range mockCoordinates {
		names = append(names, name)
	}
	sort.Strings(names)
	return &MockGeolocationProvider{known: mockCoordinates, names: names}
}

// Name identifies the provider in logs and metrics
func (m *MockGeolocationProvider) Name() string {
	return "mock"
}

// Geocode returns the coordinates of the first known city named in address
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(address)
	for _, name := range m.names {
		if strings.Contains(lower, name) {
			coords := m.known[name]
			return &coords, nil
		}
	}
	return nil, providers.ErrNoGeocodeMatch
}
