// Package job hands approved claims to the disbursement worker.
package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/faucet-intake/internal/types"
	"github.com/redis/go-redis/v9"
)

// RedisClaimQueue pushes serialized claim requests onto a Redis list.
// The disbursement worker pops from the other end; delivery is at-least-once.
type RedisClaimQueue struct {
	client redis.Cmdable
	name   string
}

// NewRedisClaimQueue creates a queue producer for the named list
func NewRedisClaimQueue(client redis.Cmdable, name string) *RedisClaimQueue {
	return &RedisClaimQueue{client: client, name: name}
}

// Put enqueues a claim as {"address": ..., "color": ...}
func (q *RedisClaimQueue) Put(ctx context.Context, req *types.ClaimRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode claim request: %w", err)
	}

	if err := q.client.RPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", q.name, err)
	}

	return nil
}

// Len returns the number of requests waiting for the worker
func (q *RedisClaimQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// Name returns the Redis list key
func (q *RedisClaimQueue) Name() string {
	return q.name
}
