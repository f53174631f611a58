package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/geo"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

// DefaultServiceRadiusMiles is drawn for providers that never set a radius
const DefaultServiceRadiusMiles = 25.0

// MaxServiceRadiusMiles rejects radii no map view could show
const MaxServiceRadiusMiles = 1000.0

// ServiceAreaService renders provider coverage areas as hex tilings
type ServiceAreaService struct {
	tiling   *geo.Tiling
	geocoder providers.GeolocationProvider
}

// NewServiceAreaService creates a new service area service. geocoder may be
// nil, in which case areas without stored coordinates have no location.
func NewServiceAreaService(tiling *geo.Tiling, geocoder providers.GeolocationProvider) *ServiceAreaService {
	return &ServiceAreaService{tiling: tiling, geocoder: geocoder}
}

// Mount starts a view for req. The caller must Close it.
func (s *ServiceAreaService) Mount(ctx context.Context, req entities.ServiceAreaRequest) *ServiceAreaView {
	return MountServiceAreaView(ctx, req, s.geocoder)
}

// Render resolves the center of req and tiles its radius. A request whose
// location cannot be resolved still succeeds with state no_location.
func (s *ServiceAreaService) Render(ctx context.Context, req entities.ServiceAreaRequest) (*entities.ServiceArea, error) {
	if !finite(req.ServiceRadius) || req.ServiceRadius < 0 {
		return nil, apperrors.NewValidationError("radius must be a non-negative number")
	}
	if req.ServiceRadius > MaxServiceRadiusMiles {
		return nil, apperrors.NewValidationError(fmt.Sprintf("radius must be at most %g miles", MaxServiceRadiusMiles))
	}

	ctx, span := observability.StartSpan(ctx, "service_area.render")
	defer span.End()

	view := s.Mount(ctx, req)
	defer view.Close()

	if err := view.Wait(ctx); err != nil {
		return nil, apperrors.NewUnavailableError("service area lookup cancelled", err)
	}

	center, geocoded := view.Center()
	if center == nil {
		return noLocationArea(req.ServiceRadius), nil
	}

	area, err := s.tiling.Compute(center.Latitude, center.Longitude, req.ServiceRadius)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewValidationError(err.Error())
	}
	return readyArea(area, geocoded), nil
}

// ForProvider renders the service area of a normalized provider
func (s *ServiceAreaService) ForProvider(ctx context.Context, provider *entities.Provider) (*entities.ServiceArea, error) {
	return s.Render(ctx, RequestForProvider(provider))
}

// RequestForProvider builds the render request from a provider's stored
// location. A missing radius falls back to DefaultServiceRadiusMiles.
func RequestForProvider(p *entities.Provider) entities.ServiceAreaRequest {
	req := entities.ServiceAreaRequest{
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		ServiceRadius: DefaultServiceRadiusMiles,
	}
	if p.ServiceRadius != nil {
		req.ServiceRadius = *p.ServiceRadius
	}
	if p.City != nil {
		req.City = *p.City
	}
	if p.State != nil {
		req.State = *p.State
	}
	if p.Address != nil {
		req.Address = *p.Address
	}
	return req
}

// ServiceAreaSummary is the text shown in place of, or under, the map
func ServiceAreaSummary(radiusMiles float64) string {
	return fmt.Sprintf("Service area covers %s miles", strconv.FormatFloat(radiusMiles, 'f', -1, 64))
}

func noLocationArea(radiusMiles float64) *entities.ServiceArea {
	return &entities.ServiceArea{
		State:       entities.ServiceAreaStateNoLocation,
		HasLocation: false,
		RadiusMiles: radiusMiles,
		RadiusKm:    geo.MilesToKm(radiusMiles),
		Zoom:        geo.ZoomForRadius(radiusMiles),
		Hexes:       []entities.ServiceAreaHex{},
		Summary:     ServiceAreaSummary(radiusMiles),
	}
}

func readyArea(area *geo.Area, geocoded bool) *entities.ServiceArea {
	hexes := make([]entities.ServiceAreaHex, 0, len(area.Hexes))
	for _, h := range area.Hexes {
		boundary := make([]entities.Coordinates, 0, len(h.Boundary))
		for _, p := range h.Boundary {
			boundary = append(boundary, entities.Coordinates{Latitude: p.Lat(), Longitude: p.Lon()})
		}
		hexes = append(hexes, entities.ServiceAreaHex{
			ID:       h.ID,
			Center:   entities.Coordinates{Latitude: h.Center.Lat(), Longitude: h.Center.Lon()},
			Boundary: boundary,
		})
	}

	return &entities.ServiceArea{
		State:       entities.ServiceAreaStateReady,
		HasLocation: true,
		Center:      &entities.Coordinates{Latitude: area.Center.Lat(), Longitude: area.Center.Lon()},
		RadiusMiles: area.RadiusMiles,
		RadiusKm:    area.RadiusKm,
		Resolution:  area.Resolution,
		Zoom:        area.Zoom,
		Hexes:       hexes,
		Summary:     ServiceAreaSummary(area.RadiusMiles),
		Geocoded:    geocoded,
		GeoJSON:     geo.FeatureCollection(area),
	}
}
