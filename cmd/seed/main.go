package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/gigmarket/marketplace/backend/internal/adapters/events"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/providers"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/postgres"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/clients/redis"
	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
	"github.com/gigmarket/marketplace/backend/pkg/secrets"
)

// sampleDocuments mirror what the intake forms actually wrote, field
// spellings and all.
var sampleDocuments = map[string]map[string]interface{}{
	"venue-sunset-hall": {
		"category":  "Venue",
		"venueName": "Sunset Hall",
		"formData": map[string]interface{}{
			"venueAddress": map[string]interface{}{"city": "Austin", "state": "TX"},
		},
		"coverPhoto":    "https://images.example.com/sunset-hall/cover.jpg",
		"photos":        []interface{}{"https://images.example.com/sunset-hall/1.jpg"},
		"lat":           30.2672,
		"lng":           -97.7431,
		"serviceRadius": 15,
		"rating":        4.7,
		"reviewCount":   88,
	},
	"ent-dj-nova": {
		"category": "entertainment",
		"formData": map[string]interface{}{
			"stageName": "DJ Nova",
			"basedIn":   "Nashville, Tennessee",
		},
		"serviceRadius": 60,
		"businessPhotos": []interface{}{
			"https://images.example.com/dj-nova/a.jpg",
			"https://images.example.com/dj-nova/b.jpg",
		},
	},
	"food-taco-truck": {
		"category":     "Food & Beverage",
		"businessName": "Taco Rocket",
		"location":     "Miami, FL 33101",
		"imageUrls":    []interface{}{"https://images.example.com/taco-rocket/truck.jpg"},
		"lat":          0,
		"lng":          0,
	},
	"vendor-bloom": {
		"businessName": "Bloom & Petal Florals",
		"residentialAddress": map[string]interface{}{
			"city":  "Chicago",
			"state": "IL",
		},
		"serviceAreaLocation": "Chicago, IL",
		"serviceRadius":       "N/A",
	},
	"vendor-unnamed": {
		"category": "vendors",
		"city":     "Phoenix",
	},
}

func main() {
	var publish bool
	flag.BoolVar(&publish, "publish", true, "publish provider.updated events after seeding")
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
	observability.InitLogger("marketplace-seed", cfg.App.Environment)
	logger := observability.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	table := cfg.Database.ProvidersTable
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data JSONB NOT NULL)`, pq.QuoteIdentifier(table))
	if _, err := pgClient.DB().ExecContext(ctx, ddl); err != nil {
		logger.Fatal().Err(err).Str("table", table).Msg("failed to create providers table")
	}

	dialect := goqu.Dialect("postgres")
	var ids []string
	for id, doc := range sampleDocuments {
		data, err := json.Marshal(doc)
		if err != nil {
			logger.Fatal().Err(err).Str("provider_id", id).Msg("failed to encode document")
		}

		query, args, err := dialect.Insert(table).Prepared(true).
			Rows(goqu.Record{"id": id, "data": string(data)}).
			OnConflict(goqu.DoUpdate("id", goqu.Record{"data": goqu.I("EXCLUDED.data")})).
			ToSQL()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build insert")
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			logger.Fatal().Err(err).Str("provider_id", id).Msg("failed to upsert document")
		}
		ids = append(ids, id)
	}
	logger.Info().Int("documents", len(ids)).Str("table", table).Msg("seeded provider documents")

	if !publish {
		return
	}

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable; skipping provider events")
		return
	}
	defer redisClient.Close()

	bus := events.NewRedisEventBus(redisClient)
	defer bus.Close()
	for _, id := range ids {
		event := entities.NewProviderEvent(id, entities.ProviderEventTypeUpdated)
		if err := bus.Publish(ctx, providers.EventChannelProviderUpdates, event); err != nil {
			logger.Warn().Err(err).Str("provider_id", id).Msg("failed to publish provider event")
		}
	}
	logger.Info().Int("events", len(ids)).Msg("published provider events")
}
