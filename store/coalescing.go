package store

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescing wraps a Tier with single-flight request coalescing (spec.md
// §4.7.4, invariant I7): for a given key, at most one factory invocation
// runs at a time per process; concurrent callers share its result.
type Coalescing struct {
	Tier
	group singleflight.Group
}

// NewCoalescing wraps tier with single-flight coalescing.
func NewCoalescing(tier Tier) *Coalescing {
	return &Coalescing{Tier: tier}
}

// GetOrCreate runs factory at most once per key among concurrent callers.
// On factory error, all waiters receive the error. On success, all waiters
// receive the same byte slice; callers that must not share a mutable
// aliasing reference should copy before mutating. The Transport does not use
// this type; its origin-fetch coalescing is requestCoalescer in coalesce.go.
func (c *Coalescing) GetOrCreate(ctx context.Context, key string, factory func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return factory(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

var _ Coalescer = (*Coalescing)(nil)
