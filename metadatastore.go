package httpcache

import (
	"context"
	"fmt"

	"github.com/polarcache/httpcache/security"
	"github.com/polarcache/httpcache/store"
)

// MetadataStore persists Records under a SHA-256-hashed request key, so raw
// URIs never reach the backing store (grounded on the teacher's
// cacheGet/cacheSet/cacheDelete key-hashing helpers), optionally encrypting
// the gob-encoded bytes at rest (C5).
type MetadataStore struct {
	backing store.Store
	sealer  *security.Sealer
}

// NewMetadataStore wraps backing as a Record store. sealer may be nil, in
// which case records are stored in plaintext.
func NewMetadataStore(backing store.Store, sealer *security.Sealer) *MetadataStore {
	return &MetadataStore{backing: backing, sealer: sealer}
}

// Get retrieves and decodes the record stored under key.
func (m *MetadataStore) Get(ctx context.Context, key string) (*Record, bool, error) {
	data, ok, err := m.backing.Get(ctx, security.HashKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}

	if m.sealer != nil {
		plaintext, decryptErr := m.sealer.Decrypt(data)
		if decryptErr != nil {
			return nil, false, fmt.Errorf("httpcache: decrypt record: %w", decryptErr)
		}
		data = plaintext
	}

	record, err := UnmarshalRecord(data)
	if err != nil {
		return nil, false, fmt.Errorf("httpcache: decode record: %w", err)
	}
	return record, true, nil
}

// Set encodes and stores record under key.
func (m *MetadataStore) Set(ctx context.Context, key string, record *Record) error {
	data, err := record.Marshal()
	if err != nil {
		return fmt.Errorf("httpcache: encode record: %w", err)
	}

	if m.sealer != nil {
		data, err = m.sealer.Encrypt(data)
		if err != nil {
			return fmt.Errorf("httpcache: encrypt record: %w", err)
		}
	}

	return m.backing.Set(ctx, security.HashKey(key), data)
}

// Remove deletes the record stored under key.
func (m *MetadataStore) Remove(ctx context.Context, key string) error {
	return m.backing.Remove(ctx, security.HashKey(key))
}
