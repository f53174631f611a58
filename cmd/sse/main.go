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

	"github.com/gigmarket/marketplace/backend/internal/adapters/events"
	"github.com/gigmarket/marketplace/backend/internal/api/handlers"
	"github.com/gigmarket/marketplace/backend/internal/api/middleware"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
	"github.com/gigmarket/marketplace/backend/pkg/secrets"
)

// The stream server runs apart from the API so long-lived connections never
// pass through response buffering, compression or the response cache.
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
	observability.InitLogger("marketplace-sse", cfg.App.Environment)
	logger := observability.GetLogger()

	// Redis is required here: it is the only event source.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	streamHandler := handlers.NewStreamHandler(eventBus, handlers.DefaultHeartbeatInterval)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": redisClient})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /api/stream/providers", streamHandler.StreamProviderUpdates)
	mux.HandleFunc("GET /api/stream/providers/{id}", streamHandler.StreamProvider)
	mux.HandleFunc("GET /api/stream/stats", streamHandler.Stats)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.StreamPort)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout: streams stay open.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("stream server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("stream server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int64("clients", streamHandler.ClientCount()).Msg("stream server shutting down")

	// Closing the bus ends every open stream.
	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("stream server stopped")
}
