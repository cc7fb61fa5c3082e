// Package disktier implements a store.Tier backed by the diskv package,
// storing each entry as a file named by the SHA-256 hash of its cache key.
package disktier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/peterbourgon/diskv"
)

// DefaultCacheSizeMax is the in-memory LRU budget diskv keeps on top of the
// on-disk files (100 MiB).
const DefaultCacheSizeMax = 100 * 1024 * 1024

// Tier persists entries to disk via diskv, which layers a bounded in-memory
// LRU cache over the filesystem.
type Tier struct {
	d *diskv.Diskv
}

func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// New returns a Tier that stores files under basePath.
func New(basePath string) *Tier {
	return &Tier{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: DefaultCacheSizeMax,
		}),
	}
}

// NewWithDiskv returns a Tier using the provided Diskv as underlying storage.
func NewWithDiskv(d *diskv.Diskv) *Tier {
	return &Tier{d: d}
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := t.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key, overwriting any existing file.
func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	if err := t.d.WriteStream(keyToFilename(key), bytes.NewReader(value), true); err != nil {
		return fmt.Errorf("disktier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(_ context.Context, key string) error {
	_ = t.d.Erase(keyToFilename(key))
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "disk" }
