package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Typesense   TypesenseConfig
	Geolocation GeolocationConfig
	ServiceArea ServiceAreaConfig
	OTEL        OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Name        string
	Environment string
	// DocumentCacheTTL is how long raw provider documents stay in Redis, in seconds.
	DocumentCacheTTL int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	// StreamPort serves the provider event stream binary
	StreamPort     int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	ProvidersTable string
	// ReplicaHosts are read replicas sharing credentials with the primary
	ReplicaHosts []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// GeolocationConfig holds geolocation provider configuration
type GeolocationConfig struct {
	// Provider is one of "nominatim", "google" or "mock".
	Provider  string
	APIKey    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// ServiceAreaConfig controls hex tiling of provider coverage areas
type ServiceAreaConfig struct {
	Resolution int
	// MaxRings caps the rings enumerated per tiling; wider areas are drawn coarser.
	MaxRings  int
	CacheSize int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:             getEnv("APP_NAME", "marketplace-api"),
			Environment:      getEnv("APP_ENV", "development"),
			DocumentCacheTTL: getEnvAsInt("DOCUMENT_CACHE_TTL_SECONDS", 60),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			StreamPort:     getEnvAsInt("SSE_PORT", 8081),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "marketplace"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ProvidersTable: getEnv("DB_PROVIDERS_TABLE", "provider_documents"),
			ReplicaHosts:   getEnvAsList("DB_REPLICA_HOSTS", nil),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "providers"),
		},
		Geolocation: GeolocationConfig{
			Provider:  strings.ToLower(getEnv("GEOLOCATION_PROVIDER", "nominatim")),
			APIKey:    getEnv("GEOLOCATION_API_KEY", ""),
			BaseURL:   getEnv("GEOLOCATION_BASE_URL", ""),
			UserAgent: getEnv("GEOLOCATION_USER_AGENT", "marketplace-api/1.0"),
			Timeout:   time.Duration(getEnvAsInt("GEOLOCATION_TIMEOUT_SECONDS", 8)) * time.Second,
		},
		ServiceArea: ServiceAreaConfig{
			Resolution: getEnvAsInt("SERVICE_AREA_RESOLUTION", 6),
			MaxRings:   getEnvAsInt("SERVICE_AREA_MAX_RINGS", 40),
			CacheSize:  getEnvAsInt("SERVICE_AREA_CACHE_SIZE", 512),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "marketplace-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Geolocation.Provider {
	case "nominatim", "google", "mock":
	default:
		return fmt.Errorf("unsupported GEOLOCATION_PROVIDER %q", c.Geolocation.Provider)
	}
	if c.ServiceArea.Resolution < 0 || c.ServiceArea.Resolution > 15 {
		return fmt.Errorf("SERVICE_AREA_RESOLUTION must be between 0 and 15, got %d", c.ServiceArea.Resolution)
	}
	if c.ServiceArea.CacheSize <= 0 {
		return fmt.Errorf("SERVICE_AREA_CACHE_SIZE must be positive, got %d", c.ServiceArea.CacheSize)
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ReplicaConfigs derives one DatabaseConfig per replica host. A host may carry
// its own port as host:port.
func (c *DatabaseConfig) ReplicaConfigs() []DatabaseConfig {
	out := make([]DatabaseConfig, 0, len(c.ReplicaHosts))
	for _, host := range c.ReplicaHosts {
		replica := *c
		replica.ReplicaHosts = nil
		replica.Host = host
		if h, p, ok := strings.Cut(host, ":"); ok {
			if port, err := strconv.Atoi(p); err == nil {
				replica.Host, replica.Port = h, port
			}
		}
		out = append(out, replica)
	}
	return out
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
