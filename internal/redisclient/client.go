package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	idempotencyPrefix = "idempotency:"
	consumeStatsKey   = "consume-stats:%d"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetIdempotency returns the cached response payload for an idempotency
// key, ok=false when absent or expired.
func (c *Client) GetIdempotency(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// SetIdempotency stores a response payload under an idempotency key with
// the given TTL.
func (c *Client) SetIdempotency(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyPrefix+key, payload, ttl).Err()
}

// DropIdempotencyPrefix deletes every idempotency entry whose key starts
// with prefix (one user's entries after a reset).
func (c *Client) DropIdempotencyPrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, idempotencyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// GetConsumeStats returns the cached consume-stats payload for a user.
func (c *Client) GetConsumeStats(ctx context.Context, userID int64) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf(consumeStatsKey, userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// SetConsumeStats caches a user's consume-stats payload.
func (c *Client) SetConsumeStats(ctx context.Context, userID int64, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf(consumeStatsKey, userID), payload, ttl).Err()
}

// InvalidateConsumeStats drops a user's cached consume stats. Called by
// the event worker whenever the user's ledger changes.
func (c *Client) InvalidateConsumeStats(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf(consumeStatsKey, userID)).Err()
}
