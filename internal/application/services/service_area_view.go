package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

// ViewState is where a ServiceAreaView is in resolving its center
type ViewState string

const (
	ViewStateInit       ViewState = "init"
	ViewStateGeocoding  ViewState = "geocoding"
	ViewStateReady      ViewState = "ready"
	ViewStateNoLocation ViewState = "no_location"
)

// ServiceAreaView resolves the center of one service-area render. It starts
// from stored coordinates when usable, otherwise makes a single geocoding
// lookup. Ready and NoLocation are terminal.
//
// The view owns the lookup's context: Close cancels an in-flight lookup and
// a result that arrives afterwards is dropped.
type ServiceAreaView struct {
	mu       sync.Mutex
	state    ViewState
	center   *entities.Coordinates
	geocoded bool
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// MountServiceAreaView starts resolving req. parent bounds the lookup along
// with Close; geocoder may be nil, in which case only stored coordinates are used.
func MountServiceAreaView(parent context.Context, req entities.ServiceAreaRequest, geocoder providers.GeolocationProvider) *ServiceAreaView {
	ctx, cancel := context.WithCancel(parent)
	v := &ServiceAreaView{
		state:  ViewStateInit,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if center, ok := providedLocation(req); ok {
		v.settle(ViewStateReady, center, false)
		return v
	}

	query := geocodeQuery(req)
	if query == "" || geocoder == nil {
		v.settle(ViewStateNoLocation, nil, false)
		return v
	}

	v.state = ViewStateGeocoding
	go v.geocode(geocoder, query)
	return v
}

func (v *ServiceAreaView) geocode(geocoder providers.GeolocationProvider, query string) {
	coords, err := geocoder.Geocode(v.ctx, query)

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		v.finish()
		return
	}

	if err != nil {
		logger := observability.LoggerFromContext(v.ctx)
		if errors.Is(err, providers.ErrNoGeocodeMatch) {
			logger.Info().Str("query", query).Msg("no geocoding match for service area")
		} else {
			logger.Warn().Err(err).Str("query", query).Msg("geocoding failed for service area")
		}
		v.settle(ViewStateNoLocation, nil, false)
		return
	}
	v.settle(ViewStateReady, coords, true)
}

// settle moves the view into a terminal state unless it was closed first
func (v *ServiceAreaView) settle(state ViewState, center *entities.Coordinates, geocoded bool) {
	v.mu.Lock()
	if !v.closed {
		v.state = state
		v.center = center
		v.geocoded = geocoded
	}
	v.mu.Unlock()
	v.finish()
}

func (v *ServiceAreaView) finish() {
	v.once.Do(func() { close(v.done) })
}

// Done is closed once the view has settled or was closed
func (v *ServiceAreaView) Done() <-chan struct{} {
	return v.done
}

// Wait blocks until the view settles, ctx ends or the view is closed
func (v *ServiceAreaView) Wait(ctx context.Context) error {
	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state
func (v *ServiceAreaView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Center returns the resolved center, or nil unless Ready
func (v *ServiceAreaView) Center() (*entities.Coordinates, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != ViewStateReady || v.center == nil {
		return nil, false
	}
	c := *v.center
	return &c, v.geocoded
}

// Close tears the view down, cancelling any in-flight lookup. Safe to call
// more than once.
func (v *ServiceAreaView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cancel()
	v.finish()
}

// providedLocation reports stored coordinates that are present, finite and
// not the zero placeholder intake forms write.
func providedLocation(req entities.ServiceAreaRequest) (*entities.Coordinates, bool) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, false
	}
	lat, lng := *req.Latitude, *req.Longitude
	if !finite(lat) || !finite(lng) || lat == 0 || lng == 0 {
		return nil, false
	}
	if !validLatLng(lat, lng) {
		return nil, false
	}
	return &entities.Coordinates{Latitude: lat, Longitude: lng}, true
}

// geocodeQuery is the address when given, else "city, state" from whatever
// parts are present.
func geocodeQuery(req entities.ServiceAreaRequest) string {
	if address := strings.TrimSpace(req.Address); address != "" {
		return address
	}
	var parts []string
	for _, p := range []string{req.City, req.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
