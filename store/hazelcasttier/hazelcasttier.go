// Package hazelcasttier implements a store.Tier backed by a Hazelcast
// distributed map via github.com/hazelcast/hazelcast-go-client, suitable as
// a durable, cross-process shared tier.
package hazelcasttier

import (
	"context"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"
)

// Tier stores entries as byte-slice values in a Hazelcast map.
type Tier struct {
	client *hazelcast.Client
	m      *hazelcast.Map
}

// tierKey prefixes a key to avoid collision with other data in the map.
func tierKey(key string) string {
	return "httpcache:" + key
}

// New connects to the Hazelcast cluster described by config and returns a
// Tier backed by mapName. The caller should call Close when done.
func New(ctx context.Context, config hazelcast.Config, mapName string) (*Tier, error) {
	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("hazelcasttier: connect: %w", err)
	}

	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, fmt.Errorf("hazelcasttier: get map %q: %w", mapName, err)
	}

	return &Tier{client: client, m: m}, nil
}

// NewWithMap returns a Tier using an externally managed map. Close is then a
// no-op with respect to the Hazelcast client.
func NewWithMap(m *hazelcast.Map) *Tier {
	return &Tier{m: m}
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := t.m.Get(ctx, tierKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcasttier: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key.
func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	if err := t.m.Set(ctx, tierKey(key), value); err != nil {
		return fmt.Errorf("hazelcasttier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(ctx context.Context, key string) error {
	if _, err := t.m.Remove(ctx, tierKey(key)); err != nil {
		return fmt.Errorf("hazelcasttier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "hazelcast" }

// Close shuts down the Hazelcast client, if owned by this Tier.
func (t *Tier) Close(ctx context.Context) error {
	if t.client != nil {
		return t.client.Shutdown(ctx)
	}
	return nil
}
