// Package freecachetier implements a store.Tier backed by
// github.com/coocood/freecache: a zero-GC-overhead, LRU-evicting in-process
// cache suitable as a large L1 ahead of a cross-process L2.
package freecachetier

import (
	"context"
	"fmt"

	"github.com/coocood/freecache"
)

// Tier wraps a freecache.Cache as a store.Tier.
type Tier struct {
	cache *freecache.Cache
}

// New creates a Tier with the given size in bytes (512 KiB minimum,
// enforced by freecache itself).
func New(sizeBytes int) *Tier {
	return &Tier{cache: freecache.NewCache(sizeBytes)}
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := t.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key with no expiration; entries are evicted only
// when the cache is full.
func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	if err := t.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("freecachetier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(_ context.Context, key string) error {
	t.cache.Del([]byte(key))
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "freecache" }

// EntryCount returns the number of entries currently stored.
func (t *Tier) EntryCount() int64 { return t.cache.EntryCount() }

// HitRate returns the ratio of cache hits to total lookups.
func (t *Tier) HitRate() float64 { return t.cache.HitRate() }
