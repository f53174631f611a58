package routes

import (
	"net/http"

	"github.com/gigmarket/marketplace/backend/internal/api/handlers"
	"github.com/gigmarket/marketplace/backend/internal/api/middleware"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	providerHandler    *handlers.ProviderHandler
	serviceAreaHandler *handlers.ServiceAreaHandler
	geolocationHandler *handlers.GeolocationHandler
	healthHandler      *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware may be nil.
func NewRouter(
	providerHandler *handlers.ProviderHandler,
	serviceAreaHandler *handlers.ServiceAreaHandler,
	geolocationHandler *handlers.GeolocationHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		providerHandler:    providerHandler,
		serviceAreaHandler: serviceAreaHandler,
		geolocationHandler: geolocationHandler,
		healthHandler:      healthHandler,
		cacheMiddleware:    cacheMiddleware,
		allowedOrigins:     allowedOrigins,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)

	// Provider endpoints
	r.mux.HandleFunc("GET /api/providers", r.providerHandler.ListProviders)
	r.mux.HandleFunc("GET /api/providers/batch", r.providerHandler.BatchProviders)
	r.mux.HandleFunc("GET /api/providers/search", r.providerHandler.SearchProviders)
	r.mux.HandleFunc("GET /api/providers/{id}", r.providerHandler.GetProvider)
	r.mux.HandleFunc("GET /api/providers/{id}/service-area", r.providerHandler.GetProviderServiceArea)

	// Service area preview from raw parameters
	r.mux.HandleFunc("GET /api/service-area", r.serviceAreaHandler.GetServiceArea)

	// Geolocation endpoints
	if r.geolocationHandler != nil {
		r.mux.HandleFunc("GET /api/geocode", r.geolocationHandler.Geocode)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability only sees the matched pattern if nothing between it and
	// the mux replaces the request.
	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
