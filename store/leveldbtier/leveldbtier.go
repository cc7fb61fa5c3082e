// Package leveldbtier implements a store.Tier backed by
// github.com/syndtr/goleveldb/leveldb, an embedded on-disk key/value store.
package leveldbtier

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// Tier stores entries in an embedded LevelDB database.
type Tier struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database at path.
func New(path string) (*Tier, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbtier: open %q: %w", path, err)
	}
	return &Tier{db: db}, nil
}

// NewWithDB returns a Tier using the provided leveldb database as underlying
// storage.
func NewWithDB(db *leveldb.DB) *Tier {
	return &Tier{db: db}
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := t.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbtier: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	if err := t.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldbtier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(_ context.Context, key string) error {
	if err := t.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbtier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "leveldb" }

// Close releases the underlying database handle.
func (t *Tier) Close() error { return t.db.Close() }
