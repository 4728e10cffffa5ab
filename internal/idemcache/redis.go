package idemcache

import (
	"context"
	"time"

	"bead-inventory-service/internal/redisclient"
)

// Redis is the shared Cache for multi-instance deployments: retries routed
// to any instance see the same entries.
type Redis struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedis wraps a redis client as an idempotency cache. A non-positive
// ttl falls back to the default.
func NewRedis(client *redisclient.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL * time.Second
	}
	return &Redis{client: client, ttl: ttl}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return r.client.GetIdempotency(ctx, key)
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, payload []byte) error {
	return r.client.SetIdempotency(ctx, key, payload, r.ttl)
}

// DropPrefix implements Cache.
func (r *Redis) DropPrefix(ctx context.Context, prefix string) error {
	return r.client.DropIdempotencyPrefix(ctx, prefix)
}
