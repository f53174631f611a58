package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

const httpCacheKeyPrefix = "http:cache:"

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// DefaultCacheRoutes are the read routes whose responses may be replayed.
// Provider reads stay short-lived since provider events do not reach this cache.
func DefaultCacheRoutes() map[string]CacheConfig {
	return map[string]CacheConfig{
		"/api/geocode":          {TTLSeconds: 3600, Enabled: true},
		"/api/service-area":     {TTLSeconds: 600, Enabled: true},
		"/api/providers/search": {TTLSeconds: 30, Enabled: true},
		"/api/providers":        {TTLSeconds: 30, Enabled: true},
	}
}

// CacheMiddleware provides HTTP response caching
type CacheMiddleware struct {
	cache    providers.CacheProvider
	metrics  *observability.Metrics
	routes   map[string]CacheConfig
	prefixes []string
}

// NewCacheMiddleware creates a cache middleware over routes. A route matches
// exactly, or as the longest prefix ending in "/".
func NewCacheMiddleware(cache providers.CacheProvider, metrics *observability.Metrics, routes map[string]CacheConfig) *CacheMiddleware {
	m := &CacheMiddleware{cache: cache, metrics: metrics, routes: routes}
	for pattern := range routes {
		if strings.HasSuffix(pattern, "/") {
			m.prefixes = append(m.prefixes, pattern)
		}
	}
	sort.Slice(m.prefixes, func(i, j int) bool { return len(m.prefixes[i]) > len(m.prefixes[j]) })
	return m
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		config := m.routeConfig(r.URL.Path)
		if !config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		logger := observability.LoggerFromContext(r.Context())
		cacheKey := CacheKey(r)

		if cached, err := m.cache.Get(r.Context(), cacheKey); err == nil {
			observability.RecordCacheHit(r.Context(), m.metrics, "http")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		observability.RecordCacheMiss(r.Context(), m.metrics, "http")
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}
		next.ServeHTTP(recorder, r)

		// Errors, empty bodies and responses marked no-store are never replayed.
		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 && !noStore(w.Header()) {
			if err := m.cache.Set(r.Context(), cacheKey, recorder.body.Bytes(), config.TTLSeconds); err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to cache response")
			}
		}
	})
}

func noStore(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-store")
}

func (m *CacheMiddleware) routeConfig(path string) CacheConfig {
	if config, ok := m.routes[path]; ok {
		return config
	}
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(path, prefix) {
			return m.routes[prefix]
		}
	}
	return CacheConfig{Enabled: false}
}

// CacheKey is the cache key for a request. Query parameters are sorted so
// their order does not matter.
func CacheKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if query := r.URL.Query().Encode(); query != "" {
		key += "?" + query
	}
	hash := sha256.Sum256([]byte(key))
	return httpCacheKeyPrefix + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
