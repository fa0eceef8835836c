package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// minCounters keeps small caches valid; ristretto rejects zero counters.
const minCounters = 1000

// Ristretto is an in-process Cache of rendered responses backed by
// dgraph-io/ristretto. Entries cost their size in bytes.
type Ristretto struct {
	c       *ristretto.Cache[string, []byte]
	maxCost int64
	logger  *slog.Logger
}

// RistrettoOption configures Ristretto.
type RistrettoOption func(*Ristretto)

// WithLogger sets the logger used to report dropped writes.
func WithLogger(l *slog.Logger) RistrettoOption {
	return func(r *Ristretto) {
		r.logger = l
	}
}

// NewRistretto creates a response cache holding at most maxCostBytes of
// payload.
func NewRistretto(maxCostBytes int64, opts ...RistrettoOption) (*Ristretto, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxCostBytes/100*10, minCounters), // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	r := &Ristretto{c: c, maxCost: maxCostBytes, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Get returns the cached response for key.
func (r *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := r.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a response for ttl. Writes are applied before Set returns so
// a following Get observes them. A write the cache refuses is logged and
// otherwise ignored; the next request recomputes the response.
func (r *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cost := int64(len(value))
	if cost > r.maxCost {
		r.logger.Debug("cache set skipped, response larger than cache", "key", key, "bytes", cost)
		return nil
	}
	if !r.c.SetWithTTL(key, value, cost, ttl) {
		r.logger.Debug("cache set rejected", "key", key, "bytes", cost, "ttl", ttl)
		return nil
	}
	r.c.Wait()
	return nil
}

// Delete evicts key.
func (r *Ristretto) Delete(_ context.Context, key string) error {
	r.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (r *Ristretto) Close() {
	r.c.Close()
}
