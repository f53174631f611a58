package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "provider_documents", cfg.Database.ProvidersTable)
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.Equal(t, "providers", cfg.Typesense.Collection)
	assert.Equal(t, "nominatim", cfg.Geolocation.Provider)
	assert.Equal(t, 8*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, 6, cfg.ServiceArea.Resolution)
	assert.Equal(t, 40, cfg.ServiceArea.MaxRings)
	assert.Equal(t, 60, cfg.App.DocumentCacheTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")
	t.Setenv("GEOLOCATION_PROVIDER", "Google")
	t.Setenv("GEOLOCATION_TIMEOUT_SECONDS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("SERVICE_AREA_RESOLUTION", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
	assert.Equal(t, "google", cfg.Geolocation.Provider)
	assert.Equal(t, 3*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 7, cfg.ServiceArea.Resolution)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unknown geolocation provider", func(t *testing.T) {
		t.Setenv("GEOLOCATION_PROVIDER", "bing")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("resolution out of range", func(t *testing.T) {
		t.Setenv("SERVICE_AREA_RESOLUTION", "16")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non numeric values fall back to defaults", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "not-a-port")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})
}

func TestDerivedAddresses(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", db.DatabaseDSN())

	rc := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", rc.RedisAddr())
}

func TestReplicaConfigs(t *testing.T) {
	t.Setenv("DB_REPLICA_HOSTS", "replica-a, replica-b:6543")

	cfg, err := Load()
	require.NoError(t, err)

	replicas := cfg.Database.ReplicaConfigs()
	require.Len(t, replicas, 2)
	assert.Equal(t, "replica-a", replicas[0].Host)
	assert.Equal(t, 5432, replicas[0].Port)
	assert.Equal(t, "replica-b", replicas[1].Host)
	assert.Equal(t, 6543, replicas[1].Port)
	assert.Equal(t, cfg.Database.User, replicas[1].User)
	assert.Empty(t, replicas[1].ReplicaHosts)
}
