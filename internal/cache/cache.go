// Package cache memoizes rendered dashboard responses for a bounded TTL.
package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultTTL is how long a cached cost response stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache is a key-value cache with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a cache key from the period type, its range parameters and
// the provider availability signature. Enabling or disabling a provider
// changes the signature, so stale entries are never served for a
// different provider set.
func Key(period, params, signature string) string {
	return strings.Join([]string{period, params, signature}, "|")
}
