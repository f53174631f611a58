package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

// ErrGeocoderUnavailable is returned while the circuit breaker is open
var ErrGeocoderUnavailable = errors.New("geocoder temporarily unavailable")

// BreakerSettings tunes the circuit breaker around a geocoder
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// DefaultBreakerSettings trips after five straight failures and probes after 30s
var DefaultBreakerSettings = BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}

// callerGoneError marks a lookup that failed because its caller cancelled or
// timed out. It says nothing about the geocoder's health.
type callerGoneError struct {
	err error
}

func (e callerGoneError) Error() string { return e.err.Error() }
func (e callerGoneError) Unwrap() error { return e.err }

// BreakerGeolocationProvider stops calling a failing geocoder for a while.
// A lookup that finds nothing, or whose caller went away, counts as a success.
type BreakerGeolocationProvider struct {
	next    providers.GeolocationProvider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerGeolocationProvider wraps next with a circuit breaker named after it
func NewBreakerGeolocationProvider(name string, next providers.GeolocationProvider, settings BreakerSettings) *BreakerGeolocationProvider {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings.ConsecutiveFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerSettings.OpenTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder-" + name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			var gone callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.GetLogger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("geocoder circuit breaker state changed")
		},
	})
	return &BreakerGeolocationProvider{next: next, breaker: breaker}
}

// Geocode calls the wrapped provider unless the breaker is open
func (b *BreakerGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		coords, err := b.next.Geocode(ctx, address)
		if errors.Is(err, providers.ErrNoGeocodeMatch) {
			return nil, nil
		}
		if err != nil && ctx.Err() != nil {
			return nil, callerGoneError{err: err}
		}
		return coords, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}
	var gone callerGoneError
	if errors.As(err, &gone) {
		return nil, gone.err
	}
	if err != nil {
		return nil, err
	}

	coords, _ := result.(*entities.Coordinates)
	if coords == nil {
		return nil, providers.ErrNoGeocodeMatch
	}
	return coords, nil
}

// State reports the breaker state, for health output
func (b *BreakerGeolocationProvider) State() string {
	return b.breaker.State().String()
}
