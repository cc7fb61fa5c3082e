package store

import "context"

// Tiered composes N store tiers ordered from fastest/smallest (first) to
// slowest/largest (last), generalizing the teacher's two-tier MultiCache
// to an arbitrary tier count. Reads search tiers in order and promote a
// found value to every faster tier; writes and removes fan out to all tiers.
type Tiered struct {
	tiers []Tier
}

// NewTiered builds a Tiered store from tiers, ordered fastest-first.
// Returns nil if no tiers are given.
func NewTiered(tiers ...Tier) *Tiered {
	if len(tiers) == 0 {
		return nil
	}
	return &Tiered{tiers: tiers}
}

// Get searches each tier in order, promoting a hit to all faster tiers.
// Promotion errors are ignored; the value was already found successfully.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, tier := range t.tiers {
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			for j := 0; j < i; j++ {
				_ = t.tiers[j].Set(ctx, key, value)
			}
			return value, true, nil
		}
	}
	return nil, false, nil
}

// Set writes value to every tier.
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes key from every tier.
func (t *Tiered) Remove(ctx context.Context, key string) error {
	for _, tier := range t.tiers {
		if err := tier.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// TierName reports the composed tier names, outermost to innermost.
func (t *Tiered) TierName() string {
	name := ""
	for i, tier := range t.tiers {
		if i > 0 {
			name += "+"
		}
		name += tier.TierName()
	}
	return name
}

var _ Tier = (*Tiered)(nil)
