// Package redistier implements a store.Tier backed by Redis via
// github.com/gomodule/redigo, suitable as a cross-process L2 shared by
// multiple cache instances.
package redistier

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Config configures a connection pool to a Redis server.
type Config struct {
	Address        string
	Password       string
	DB             int
	MaxIdle        int
	MaxActive      int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns a Config with sensible pool and timeout defaults.
func DefaultConfig() Config {
	return Config{
		MaxIdle:        10,
		MaxActive:      100,
		IdleTimeout:    5 * time.Minute,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Tier wraps a Redis connection pool as a store.Tier.
type Tier struct {
	pool *redis.Pool
}

func tierKey(key string) string {
	return "httpcache:" + key
}

// New dials config.Address and returns a Tier backed by a connection pool.
func New(config Config) (*Tier, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("redistier: address is required")
	}

	defaults := DefaultConfig()
	if config.MaxIdle == 0 {
		config.MaxIdle = defaults.MaxIdle
	}
	if config.MaxActive == 0 {
		config.MaxActive = defaults.MaxActive
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	pool := &redis.Pool{
		MaxIdle:     config.MaxIdle,
		MaxActive:   config.MaxActive,
		IdleTimeout: config.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(config.ConnectTimeout),
				redis.DialReadTimeout(config.ReadTimeout),
				redis.DialWriteTimeout(config.WriteTimeout),
				redis.DialDatabase(config.DB),
			}
			if config.Password != "" {
				opts = append(opts, redis.DialPassword(config.Password))
			}
			return redis.Dial("tcp", config.Address, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("redistier: connect: %w", err)
	}

	return &Tier{pool: pool}, nil
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(_ context.Context, key string) ([]byte, bool, error) {
	conn := t.pool.Get()
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", tierKey(key)))
	if err != nil {
		if err == redis.ErrNil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redistier: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (t *Tier) Set(_ context.Context, key string, value []byte) error {
	conn := t.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SET", tierKey(key), value); err != nil {
		return fmt.Errorf("redistier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(_ context.Context, key string) error {
	conn := t.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", tierKey(key)); err != nil {
		return fmt.Errorf("redistier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "redis" }

// Close releases the connection pool.
func (t *Tier) Close() error { return t.pool.Close() }
