// Package blobtier implements a store.Tier backed by a Go CDK blob bucket
// via gocloud.dev/blob, supporting S3, GCS, Azure Blob Storage, and local
// filesystem/in-memory buckets through the same interface.
package blobtier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Config holds the configuration for a Tier.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	BucketURL string
	// KeyPrefix is prepended to every blob key (default: "httpcache/").
	KeyPrefix string
	// Timeout bounds each blob operation when ctx carries no deadline (default: 30s).
	Timeout time.Duration
	// Bucket is an optional pre-opened bucket; if set, BucketURL is ignored.
	Bucket *blob.Bucket
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "httpcache/",
		Timeout:   30 * time.Second,
	}
}

// Tier stores entries as blobs, named by the SHA-256 hash of the cache key
// to sidestep character restrictions imposed by individual cloud providers.
type Tier struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

// New opens config.BucketURL (or uses config.Bucket if provided) and returns
// a Tier. Call Close to release resources when the bucket was opened here.
func New(ctx context.Context, config Config) (*Tier, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobtier: either BucketURL or Bucket must be provided")
	}

	defaults := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	var bucket *blob.Bucket
	var ownsBucket bool
	var err error

	if config.Bucket != nil {
		bucket = config.Bucket
	} else {
		bucket, err = blob.OpenBucket(ctx, config.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobtier: open bucket: %w", err)
		}
		ownsBucket = true
	}

	return &Tier{
		bucket:     bucket,
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
		ownsBucket: ownsBucket,
	}, nil
}

// NewWithBucket returns a Tier using an already-opened bucket. The caller
// remains responsible for closing it.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) *Tier {
	defaults := DefaultConfig()
	if keyPrefix == "" {
		keyPrefix = defaults.KeyPrefix
	}
	if timeout == 0 {
		timeout = defaults.Timeout
	}
	return &Tier{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout}
}

func (t *Tier) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return t.keyPrefix + hex.EncodeToString(hash[:])
}

func (t *Tier) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	reader, err := t.bucket.NewReader(ctx, t.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobtier: get %q: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobtier: read %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key, overwriting any existing blob.
func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	writer, err := t.bucket.NewWriter(ctx, t.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobtier: set %q: new writer: %w", key, err)
	}
	_, writeErr := writer.Write(value)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobtier: set %q: write: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobtier: set %q: close: %w", key, closeErr)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(ctx context.Context, key string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if err := t.bucket.Delete(ctx, t.blobKey(key)); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobtier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "blob" }

// Close closes the bucket, if opened by New.
func (t *Tier) Close() error {
	if t.ownsBucket {
		if err := t.bucket.Close(); err != nil {
			return fmt.Errorf("blobtier: close: %w", err)
		}
	}
	return nil
}
