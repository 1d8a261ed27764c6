package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/faucet-intake/internal/config"
	"github.com/faucet-intake/internal/types"
	"github.com/faucet-intake/internal/validation"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis connection and checks it is reachable
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisClaimStore keeps the last claim time per address as a Unix
// millisecond value under prefix+address.
type RedisClaimStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisClaimStore creates a Redis-backed claim record store
func NewRedisClaimStore(client redis.Cmdable, prefix string) *RedisClaimStore {
	if prefix == "" {
		prefix = "faucet:claim:"
	}
	return &RedisClaimStore{client: client, prefix: prefix}
}

func (s *RedisClaimStore) key(address string) string {
	return s.prefix + validation.NormalizeAddress(address)
}

// GetLastClaim returns the claim record for address, or nil if it never claimed
func (s *RedisClaimStore) GetLastClaim(ctx context.Context, address string) (*types.ClaimRecord, error) {
	value, err := s.client.Get(ctx, s.key(address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claim record: %w", err)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt claim record for %s: %w", address, err)
	}

	return &types.ClaimRecord{
		Address:       address,
		LastClaimedAt: time.UnixMilli(millis).UTC(),
	}, nil
}

// RecordClaim upserts the last claim time for address
func (s *RedisClaimStore) RecordClaim(ctx context.Context, address string, at time.Time) error {
	if err := s.client.Set(ctx, s.key(address), at.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to set claim record: %w", err)
	}
	return nil
}
