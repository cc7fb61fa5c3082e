// Package natstier implements a store.Tier backed by a NATS JetStream
// Key/Value bucket via github.com/nats-io/nats.go, suitable as a durable,
// cross-process shared tier.
package natstier

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/polarcache/httpcache"
)

// Config holds the configuration for creating a Tier.
type Config struct {
	// NATSUrl is the URL of the NATS server. Defaults to nats.DefaultURL.
	NATSUrl string
	// Bucket is the name of the K/V bucket to use for caching.
	Bucket string
	// Description is an optional description for the K/V bucket.
	Description string
	// TTL is the time-to-live for cache entries; zero means no expiry.
	TTL time.Duration
	// NATSOptions are additional options passed to nats.Connect.
	NATSOptions []nats.Option
}

// Tier stores entries as keys in a NATS JetStream K/V bucket.
type Tier struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// tierKey prefixes a key so it cannot collide with other data in the bucket.
// NATS K/V keys may not contain ':', so a '.' separator is used instead.
func tierKey(key string) string {
	return "httpcache." + key
}

// New connects to config.NATSUrl and creates or updates the K/V bucket.
// The caller should call Close when done to release the NATS connection.
func New(ctx context.Context, config Config) (*Tier, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("natstier: bucket name is required")
	}

	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natstier: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natstier: jetstream context: %w", err)
	}

	kvConfig := jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.TTL,
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, kvConfig)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natstier: create or update bucket: %w", err)
	}

	return &Tier{kv: kv, nc: nc}, nil
}

// NewWithKeyValue returns a Tier using an externally managed K/V store.
// Close is then a no-op with respect to the NATS connection.
func NewWithKeyValue(kv jetstream.KeyValue) *Tier {
	return &Tier{kv: kv, nc: nil}
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := t.kv.Get(ctx, tierKey(key))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natstier: get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set stores value under key.
func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	if _, err := t.kv.Put(ctx, tierKey(key), value); err != nil {
		httpcache.GetLogger().Warn("natstier: put failed", "key", key, "error", err)
		return fmt.Errorf("natstier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(ctx context.Context, key string) error {
	if err := t.kv.Delete(ctx, tierKey(key)); err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil
		}
		return fmt.Errorf("natstier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "nats" }

// Close closes the underlying NATS connection, if owned by this Tier.
func (t *Tier) Close() error {
	if t.nc != nil {
		t.nc.Close()
	}
	return nil
}
