package geolocation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
)

// ProviderConfig configures the geocoder stack
type ProviderConfig struct {
	Geolocation config.GeolocationConfig
	Breaker     BreakerSettings
	// Cache may be nil, which disables result caching.
	Cache   providers.CacheProvider
	Metrics *observability.Metrics
}

// NewGeolocationProvider builds the configured geocoder wrapped, from the
// outside in, with the result cache, instrumentation and a circuit breaker.
func NewGeolocationProvider(cfg ProviderConfig) (providers.GeolocationProvider, error) {
	httpClient := &http.Client{Timeout: cfg.Geolocation.Timeout}
	if cfg.Geolocation.Timeout <= 0 {
		httpClient.Timeout = defaultHTTPTimeout
	}

	var (
		base providers.GeolocationProvider
		name string
	)
	switch cfg.Geolocation.Provider {
	case "", "nominatim":
		base, name = NewNominatimGeolocationProvider(cfg.Geolocation.BaseURL, cfg.Geolocation.UserAgent, httpClient), "nominatim"
	case "google":
		if cfg.Geolocation.APIKey == "" {
			return nil, fmt.Errorf("GEOLOCATION_API_KEY is required for the google geocoder")
		}
		base, name = NewGoogleGeolocationProvider(cfg.Geolocation.APIKey, cfg.Geolocation.BaseURL, httpClient), "google"
	case "mock":
		base, name = NewMockGeolocationProvider(), "mock"
	default:
		return nil, fmt.Errorf("unsupported geolocation provider %q", cfg.Geolocation.Provider)
	}

	var provider providers.GeolocationProvider = NewBreakerGeolocationProvider(name, base, cfg.Breaker)
	provider = &InstrumentedGeolocationProvider{next: provider, name: name, metrics: cfg.Metrics}
	if cfg.Cache != nil {
		provider = NewCachedGeolocationProvider(provider, cfg.Cache, cfg.Metrics)
	}
	return provider, nil
}

// InstrumentedGeolocationProvider traces, logs and counts lookups
type InstrumentedGeolocationProvider struct {
	next    providers.GeolocationProvider
	name    string
	metrics *observability.Metrics
}

// Geocode delegates to the wrapped provider
func (p *InstrumentedGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	ctx, span := observability.StartSpan(ctx, "geocode."+p.name)
	defer span.End()

	coords, err := p.next.Geocode(ctx, address)
	switch {
	case err == nil:
		observability.RecordGeocode(ctx, p.metrics, p.name, "hit")
	case errors.Is(err, providers.ErrNoGeocodeMatch):
		observability.RecordGeocode(ctx, p.metrics, p.name, "miss")
	default:
		observability.RecordGeocode(ctx, p.metrics, p.name, "error")
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("geocoder", p.name).Msg("geocode lookup failed")
	}
	return coords, err
}
