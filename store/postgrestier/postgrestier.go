// Package postgrestier implements a store.Tier backed by PostgreSQL via
// github.com/jackc/pgx/v5, suitable as a durable, cross-process shared tier.
package postgrestier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNilPool is returned when a nil pool is provided to NewWithPool.
var ErrNilPool = errors.New("postgrestier: pool cannot be nil")

const (
	// DefaultTableName is the default table used for cache storage.
	DefaultTableName = "httpcache_entries"
	// DefaultKeyPrefix is the default prefix applied to all stored keys.
	DefaultKeyPrefix = "httpcache:"
)

// Config configures a Tier.
type Config struct {
	// TableName is the table storing cache entries (default: "httpcache_entries").
	TableName string
	// KeyPrefix is prefixed onto every stored key (default: "httpcache:").
	KeyPrefix string
	// Timeout bounds each database operation when ctx carries no deadline (default: 5s).
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		TableName: DefaultTableName,
		KeyPrefix: DefaultKeyPrefix,
		Timeout:   5 * time.Second,
	}
}

// Tier stores entries as rows in a PostgreSQL table.
type Tier struct {
	pool      *pgxpool.Pool
	tableName string
	keyPrefix string
	timeout   time.Duration
}

func (t *Tier) tierKey(key string) string {
	return t.keyPrefix + key
}

func (t *Tier) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// NewWithPool returns a Tier using the provided connection pool. The cache
// table is created if it does not already exist.
func NewWithPool(ctx context.Context, pool *pgxpool.Pool, config Config) (*Tier, error) {
	if pool == nil {
		return nil, ErrNilPool
	}

	defaults := DefaultConfig()
	if config.TableName == "" {
		config.TableName = defaults.TableName
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	tier := &Tier{
		pool:      pool,
		tableName: config.TableName,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
	}

	if err := tier.createTable(ctx); err != nil {
		return nil, err
	}
	return tier, nil
}

// New dials connString and returns a Tier backed by a fresh connection pool.
func New(ctx context.Context, connString string, config Config) (*Tier, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgrestier: connect: %w", err)
	}

	tier, err := NewWithPool(ctx, pool, config)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return tier, nil
}

func (t *Tier) createTable(ctx context.Context) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS ` + t.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	_, err := t.pool.Exec(ctx, query)
	return err
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + t.tableName + ` WHERE key = $1`
	err := t.pool.QueryRow(ctx, query, t.tierKey(key)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgrestier: get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key, overwriting any existing entry.
func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO ` + t.tableName + ` (key, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = $2, updated_at = $3
	`
	if _, err := t.pool.Exec(ctx, query, t.tierKey(key), value, time.Now()); err != nil {
		return fmt.Errorf("postgrestier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(ctx context.Context, key string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM ` + t.tableName + ` WHERE key = $1`
	if _, err := t.pool.Exec(ctx, query, t.tierKey(key)); err != nil {
		return fmt.Errorf("postgrestier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "postgres" }

// Close releases the connection pool.
func (t *Tier) Close() { t.pool.Close() }
