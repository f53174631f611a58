package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

const (
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	geocodeCacheMetricKey  = "geo:geocode"
)

// CachedGeolocationProvider memoizes successful lookups in the cache.
// No-match results are not cached.
type CachedGeolocationProvider struct {
	next    providers.GeolocationProvider
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

// NewCachedGeolocationProvider wraps next with a cache
func NewCachedGeolocationProvider(next providers.GeolocationProvider, cache providers.CacheProvider, metrics *observability.Metrics) *CachedGeolocationProvider {
	return &CachedGeolocationProvider{
		next:    next,
		cache:   cache,
		ttl:     defaultGeocodeCacheTTL,
		metrics: metrics,
	}
}

// Geocode serves from cache, falling back to the wrapped provider
func (c *CachedGeolocationProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	cacheKey := geocodeCacheKey(address)

	if cached, err := c.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
		var coords entities.Coordinates
		if err := json.Unmarshal(cached, &coords); err == nil && (coords.Latitude != 0 || coords.Longitude != 0) {
			observability.RecordCacheHit(ctx, c.metrics, geocodeCacheMetricKey)
			return &coords, nil
		}
	}
	observability.RecordCacheMiss(ctx, c.metrics, geocodeCacheMetricKey)

	coords, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(coords); err == nil {
		if err := c.cache.Set(ctx, cacheKey, payload, c.ttl); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache geocode result")
		}
	}
	return coords, nil
}

func geocodeCacheKey(address string) string {
	return "geo:v2:geocode:" + hashKey(strings.ToLower(strings.TrimSpace(address)))
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
