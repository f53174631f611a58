package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"

	"github.com/gigmarket/marketplace/backend/internal/infrastructure/observability"
	"github.com/gigmarket/marketplace/backend/pkg/config"
)

// Reader hands out a connection for read-only queries
type Reader interface {
	Read() *sql.DB
}

// Read returns the single connection; Client satisfies Reader.
func (c *Client) Read() *sql.DB {
	return c.db
}

// MultiDBClient spreads reads over read replicas, falling back to the primary
type MultiDBClient struct {
	primary      *sql.DB
	readReplicas []*sql.DB
	rrIndex      uint32 // Round-robin index for read replica selection
}

// MultiDBConfig holds configuration for multiple database connections
type MultiDBConfig struct {
	PrimaryDSN  string
	ReplicaDSNs []string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewMultiDBClient connects to the primary and every reachable replica.
// Unreachable replicas are logged and skipped.
func NewMultiDBClient(primary *Client, cfg MultiDBConfig) *MultiDBClient {
	client := &MultiDBClient{
		primary:      primary.DB(),
		readReplicas: make([]*sql.DB, 0, len(cfg.ReplicaDSNs)),
	}

	logger := observability.GetLogger()
	for i, replicaDSN := range cfg.ReplicaDSNs {
		replicaDB, err := connectDB(replicaDSN, cfg)
		if err != nil {
			logger.Warn().Err(err).Int("replica", i).Msg("failed to connect to read replica")
			continue
		}
		client.readReplicas = append(client.readReplicas, replicaDB)
	}

	if len(client.readReplicas) > 0 {
		logger.Info().Int("replicas", len(client.readReplicas)).Msg("provider reads spread over read replicas")
	}
	return client
}

// NewMultiDBClientFromConfig wraps primary and dials the configured replicas
func NewMultiDBClientFromConfig(primary *Client, cfg *config.DatabaseConfig) *MultiDBClient {
	replicas := cfg.ReplicaConfigs()
	replicaDSNs := make([]string, len(replicas))
	for i, replicaCfg := range replicas {
		replicaDSNs[i] = replicaCfg.DatabaseDSN()
	}

	return NewMultiDBClient(primary, MultiDBConfig{
		ReplicaDSNs:     replicaDSNs,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	})
}

func connectDB(dsn string, poolConfig MultiDBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(poolConfig.MaxOpenConns)
	db.SetMaxIdleConns(poolConfig.MaxIdleConns)
	db.SetConnMaxLifetime(poolConfig.ConnMaxLifetime)
	db.SetConnMaxIdleTime(poolConfig.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Primary returns the primary database connection
func (c *MultiDBClient) Primary() *sql.DB {
	return c.primary
}

// Read returns a read replica connection using round-robin, or primary if no replicas
func (c *MultiDBClient) Read() *sql.DB {
	if len(c.readReplicas) == 0 {
		return c.primary
	}

	idx := atomic.AddUint32(&c.rrIndex, 1)
	return c.readReplicas[idx%uint32(len(c.readReplicas))]
}

// Close closes the replica connections. The primary is owned by its Client.
func (c *MultiDBClient) Close() error {
	var errs []error
	for i, replica := range c.readReplicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close replica %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// HealthCheck pings the primary and reports when every replica is down
func (c *MultiDBClient) HealthCheck(ctx context.Context) error {
	if err := c.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database unhealthy: %w", err)
	}

	unhealthyReplicas := 0
	for i, replica := range c.readReplicas {
		if err := replica.PingContext(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Int("replica", i).Msg("read replica unhealthy")
			unhealthyReplicas++
		}
	}

	if unhealthyReplicas == len(c.readReplicas) && len(c.readReplicas) > 0 {
		return fmt.Errorf("all read replicas unhealthy")
	}
	return nil
}
