// Package storage provides the claim record stores backing the cool-down check.
package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/faucet-intake/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresConnectTimeout bounds pool creation and the first ping
const postgresConnectTimeout = 10 * time.Second

// PostgresDB holds the pool behind the Postgres claim record store
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB opens a pool to the claim record database and pings it once.
// A failed ping closes the pool again so retry.Connect can start clean.
func NewPostgresDB(ctx context.Context, cfg *config.PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("parse postgres url for %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	// The store does one query per claim, a small pool is plenty
	if n := cfg.MaxConnections; n > 0 && n <= math.MaxInt32 {
		poolConfig.MaxConns = int32(n)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close releases every pooled connection
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool exposes the pool for the repository and integration tests
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}
