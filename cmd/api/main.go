package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gigmarket/marketplace/backend/internal/adapters/cache"
	"github.com/gigmarket/marketplace/backend/internal/adapters/database"
	"github.com/gigmarket/marketplace/backend/internal/adapters/events"
	"github.com/gigmarket/marketplace/backend/internal/adapters/providers/geolocation"
	"github.com/gigmarket/marketplace/backend/internal/adapters/search"
	"github.com/gigmarket/marketplace/backend/internal/api/handlers"
	"github.com/gigmarket/marketplace/backend/internal/api/middleware"
	"github.com/gigmarket/marketplace/backend/internal/api/routes"
	"github.com/gigmarket/marketplace/backend/internal/application/services"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	"github.com/gigmarket/marketplace/backend/internal/geo"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/typesense"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
	"github.com/gigmarket/marketplace/backend/pkg/secrets"
)

func main() {
	if _, err := secrets.Bootstrap(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.App.Name, cfg.App.Environment)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	dbClient := postgres.NewMultiDBClientFromConfig(pgClient, &cfg.Database)
	defer dbClient.Close()
	logger.Info().Str("table", cfg.Database.ProvidersTable).Msg("PostgreSQL client initialized")

	// Redis is optional: without it documents are read straight from the
	// store and provider events are not consumed.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Redis client; running without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	// Search is optional too.
	var searchRepo repositories.ProviderSearchRepository
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize Typesense client; search disabled")
	} else {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := adapter.InitSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to init Typesense schema")
		}
		searchRepo = adapter
	}

	// Adapters
	var docs repositories.ProviderDocumentRepository = database.NewProviderDocumentAdapter(dbClient, cfg.Database.ProvidersTable, metrics)
	var documentCache *database.CachedProviderDocumentAdapter
	if cacheProvider != nil {
		documentCache = database.NewCachedProviderDocumentAdapter(docs, cacheProvider, cfg.App.DocumentCacheTTL, metrics)
		docs = documentCache
	}

	geocoder, err := geolocation.NewGeolocationProvider(geolocation.ProviderConfig{
		Geolocation: cfg.Geolocation,
		Breaker:     geolocation.DefaultBreakerSettings,
		Cache:       cacheProvider,
		Metrics:     metrics,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("geocoding disabled")
		geocoder = nil
	}

	tiling, err := geo.NewTiling(cfg.ServiceArea.Resolution, cfg.ServiceArea.MaxRings, cfg.ServiceArea.CacheSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid service area configuration")
	}

	// Services
	providerService := services.NewProviderService(docs, searchRepo)
	serviceAreaService := services.NewServiceAreaService(tiling, geocoder)

	var invalidation *services.CacheInvalidationService
	if documentCache != nil && eventBus != nil {
		invalidation = services.NewCacheInvalidationService(documentCache, docs, searchRepo, eventBus)
		if err := invalidation.Start(); err != nil {
			logger.Warn().Err(err).Msg("failed to start provider event listener")
			invalidation = nil
		}
	}

	// Handlers
	checks := map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(dbClient.HealthCheck),
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	var geolocationHandler *handlers.GeolocationHandler
	if geocoder != nil {
		geolocationHandler = handlers.NewGeolocationHandler(geocoder)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics, middleware.DefaultCacheRoutes())
	}

	router := routes.NewRouter(
		handlers.NewProviderHandler(providerService, serviceAreaService),
		handlers.NewServiceAreaHandler(serviceAreaService, services.DefaultServiceRadiusMiles),
		geolocationHandler,
		handlers.NewHealthHandler(checks),
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Str("env", cfg.App.Environment).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	if invalidation != nil {
		invalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing event bus")
		}
	}

	logger.Info().Msg("server stopped")
}
