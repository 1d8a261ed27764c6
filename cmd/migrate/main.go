// Package main applies or rolls back the claim record schema on Postgres.
//
// Only the postgres record store has a schema; with STORE_BACKEND=redis the
// tool still runs against POSTGRES_* so the database can be prepared ahead
// of a backend switch.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/faucet-intake/internal/config"
	"github.com/faucet-intake/internal/logging"
	"github.com/faucet-intake/internal/storage"
)

func main() {
	action := flag.String("action", "up", "Migration action: up, down, version")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithFields(map[string]interface{}{
		"action":     *action,
		"database":   cfg.Store.Postgres.Database,
		"migrations": cfg.Store.Postgres.MigrationsPath,
	})

	if cfg.Store.Backend != config.StoreBackendPostgres {
		logger.WithField("store", cfg.Store.Backend).Warn("Record store is not postgres, migrating anyway")
	}

	if err := migrateClaimRecords(logger, &cfg.Store.Postgres, *action); err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}
}

func migrateClaimRecords(logger *logging.Logger, cfg *config.PostgresConfig, action string) error {
	databaseURL := cfg.URL()

	switch action {
	case "up":
		if err := storage.RunMigrations(databaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
		logger.Info("Claim record schema is up to date")
	case "down":
		if err := storage.RollbackMigrations(databaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
		logger.Info("Rolled back one claim record migration")
	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, cfg.MigrationsPath)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		}).Info("Current claim record schema version")
	default:
		return fmt.Errorf("unknown action %q (must be up, down or version)", action)
	}
	return nil
}
