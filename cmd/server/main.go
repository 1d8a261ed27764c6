// Package main provides the API server entry point for the faucet intake service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faucet-intake/internal/adapter"
	"github.com/faucet-intake/internal/api"
	"github.com/faucet-intake/internal/config"
	"github.com/faucet-intake/internal/job"
	"github.com/faucet-intake/internal/logging"
	"github.com/faucet-intake/internal/retry"
	"github.com/faucet-intake/internal/service"
	"github.com/faucet-intake/internal/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The queue always lives on Redis, the record store may too
	redisClient, err := retry.Connect(ctx, retry.DefaultConfig(), "redis", func(ctx context.Context) (*redis.Client, error) {
		return storage.NewRedisClient(ctx, &cfg.Store.Redis)
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	var store service.ClaimRecordStore
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		postgres, err := retry.Connect(ctx, retry.DefaultConfig(), "postgres", func(ctx context.Context) (*storage.PostgresDB, error) {
			return storage.NewPostgresDB(ctx, &cfg.Store.Postgres)
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()
		store = storage.NewClaimRecordRepository(postgres)
	default:
		store = storage.NewRedisClaimStore(redisClient, cfg.Store.Redis.RecordPrefix)
	}

	logger.WithFields(map[string]interface{}{
		"store": cfg.Store.Backend,
		"queue": cfg.Queue.Name,
	}).Info("Storage connections established")

	if cfg.Twitter.BearerToken == "" {
		logger.Warn("TWITTER_BEARER_TOKEN is not set, tweet claims will fail")
	}

	claimService := service.NewClaimService(service.ClaimServiceConfig{
		Queue:         job.NewRedisClaimQueue(redisClient, cfg.Queue.Name),
		Store:         store,
		Posts:         adapter.NewTwitterClient(&cfg.Twitter),
		ProjectHandle: cfg.Faucet.ProjectHandle,
	})

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ClientRPS:       cfg.RateLimit.RequestsPerSecond,
		ClientBurst:     cfg.RateLimit.Burst,
		ClientIdleTTL:   cfg.RateLimit.IdleTTL,
		TrustedProxies:  cfg.RateLimit.TrustedProxies,
		DefaultColor:    cfg.Faucet.DefaultColor,
	}

	server := api.NewServer(serverConfig, claimService)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host":          cfg.Server.Host,
		"port":          cfg.Server.Port,
		"projectHandle": cfg.Faucet.ProjectHandle,
	}).Info("Server started successfully")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Info("Server exited")
}
