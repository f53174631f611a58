package providers

import (
	"context"
	"errors"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
)

// ErrNoGeocodeMatch is returned when the lookup succeeded but found nothing
var ErrNoGeocodeMatch = errors.New("no geocoding match")

// GeolocationProvider defines the interface for geolocation services
type GeolocationProvider interface {
	// Geocode converts a free-text address to coordinates.
	// Returns ErrNoGeocodeMatch when the service has no result.
	Geocode(ctx context.Context, address string) (*entities.Coordinates, error)
}
