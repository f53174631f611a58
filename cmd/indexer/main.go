package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gigmarket/marketplace/backend/internal/adapters/database"
	"github.com/gigmarket/marketplace/backend/internal/adapters/search"
	"github.com/gigmarket/marketplace/backend/internal/application/services"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/typesense"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
	"github.com/gigmarket/marketplace/backend/pkg/secrets"
)

func main() {
	var reset bool
	var intervalFlag string
	var batchSize int
	flag.BoolVar(&reset, "reset", false, "delete the existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.IntVar(&batchSize, "batch", services.MaxPageSize, "documents read per page")
	flag.Parse()

	if _, err := secrets.Bootstrap(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("marketplace-indexer", cfg.App.Environment)
	logger := observability.GetLogger()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			logger.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			logger.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset, batchSize); err != nil {
			logger.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		logger.Info().Dur("next_run_in", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			logger.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool, batchSize int) error {
	logger := observability.GetLogger()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset {
		logger.Info().Str("collection", tsClient.Collection()).Msg("dropping search collection")
		if err := tsClient.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}

	searchRepo := search.NewTypesenseAdapter(tsClient)
	if err := searchRepo.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to init collection: %w", err)
	}

	docs := database.NewProviderDocumentAdapter(pgClient, cfg.Database.ProvidersTable, nil)
	providerService := services.NewProviderService(docs, searchRepo)

	start := time.Now()
	indexed, err := providerService.Reindex(ctx, batchSize)
	logger.Info().
		Int("indexed", indexed).
		Dur("took", time.Since(start)).
		Msg("reindex finished")
	return err
}
