package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/faucet-intake/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x8db6B632D743aef641146DC943acb64957155388"

// testContext bounds a storage call so a hung backend fails the test
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// startMiniredis runs an in-memory Redis that is stopped with the test
func startMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

// setupRedisStore returns a record store on a fresh miniredis, under the test:claim: prefix
func setupRedisStore(t *testing.T) (*RedisClaimStore, *miniredis.Miniredis) {
	t.Helper()
	mr := startMiniredis(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisClaimStore(client, "test:claim:"), mr
}

// testPostgresConfig points at the docker-compose database unless the
// POSTGRES_* variables say otherwise.
func testPostgresConfig() *config.PostgresConfig {
	return &config.PostgresConfig{
		Host:           envOr("POSTGRES_HOST", "localhost"),
		Port:           envOr("POSTGRES_PORT", "5432"),
		Database:       envOr("POSTGRES_DB", "faucet"),
		User:           envOr("POSTGRES_USER", "faucet"),
		Password:       envOr("POSTGRES_PASSWORD", "faucet_dev_password"),
		MaxConnections: 5,
		MigrationsPath: filepath.Join("..", "..", "migrations"),
	}
}

// connectTestPostgres opens a migrated database or skips the test when none is reachable
func connectTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(testContext(t), cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, RunMigrations(cfg.URL(), cfg.MigrationsPath))
	return db
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
