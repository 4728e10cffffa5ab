// Package idemcache makes retried mutations safe: a repeated submission
// under the same key replays the original response instead of touching
// the ledger again.
package idemcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DefaultTTL is how long a cached response shields the ledger from a
// replayed request.
const DefaultTTL = 120 // seconds

// MaxKeyTokenLen caps the client-supplied idempotency token.
const MaxKeyTokenLen = 128

// Cache is the idempotency store. The default implementation is
// process-local memory; behind multiple instances a shared implementation
// (Redis) must be used or retries routed elsewhere are not deduplicated.
type Cache interface {
	// Get returns the cached payload for key, or ok=false when absent or
	// expired.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	// Set stores the payload under key with the TTL.
	Set(ctx context.Context, key string, payload []byte) error
	// DropPrefix removes every entry whose key starts with prefix. Used
	// after a reset so stale successes are not replayed.
	DropPrefix(ctx context.Context, prefix string) error
}

// KeyFromToken derives the cache key from a client-supplied token,
// scoped by user. Empty when no usable token was supplied.
func KeyFromToken(userID int64, token string) string {
	if len(token) > MaxKeyTokenLen {
		token = token[:MaxKeyTokenLen]
	}
	if token == "" {
		return ""
	}
	return strconv.FormatInt(userID, 10) + ":" + token
}

// KeyFromBody derives a fallback key from the request body, so retries
// that regenerate a fresh token (or send none) still deduplicate.
func KeyFromBody(userID int64, body []byte) string {
	sum := sha256.Sum256(body)
	return strconv.FormatInt(userID, 10) + ":hash:" + hex.EncodeToString(sum[:])[:32]
}

// UserPrefix is the key prefix covering every entry of one user.
func UserPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + ":"
}
