// Package mongotier implements a store.Tier backed by MongoDB via
// go.mongodb.org/mongo-driver, suitable as a durable, cross-process shared tier.
package mongotier

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/polarcache/httpcache"
)

// Config holds the configuration for creating a Tier.
type Config struct {
	// URI is the MongoDB connection URI (e.g., "mongodb://localhost:27017").
	URI string
	// Database is the name of the database to use for caching.
	Database string
	// Collection is the name of the collection to use for caching (default: "httpcache").
	Collection string
	// KeyPrefix is a prefix added to all cache keys (default: "httpcache:").
	KeyPrefix string
	// Timeout bounds each database operation; an earlier deadline on ctx still applies (default: 5s).
	Timeout time.Duration
	// TTL, if set, creates a TTL index on the updatedAt field.
	TTL time.Duration
	// ClientOptions are additional options passed to mongo.Connect.
	ClientOptions *options.ClientOptions
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Collection: "httpcache",
		KeyPrefix:  "httpcache:",
		Timeout:    5 * time.Second,
	}
}

// entry represents a stored document.
type entry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Tier stores entries as documents in a MongoDB collection.
type Tier struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyPrefix  string
	timeout    time.Duration
}

func (t *Tier) tierKey(key string) string {
	return t.keyPrefix + key
}

// New connects to config.URI and returns a Tier. The caller should call
// Close when done to release the connection.
func New(ctx context.Context, config Config) (*Tier, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongotier: URI is required")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("mongotier: database name is required")
	}

	defaults := DefaultConfig()
	if config.Collection == "" {
		config.Collection = defaults.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	if config.ClientOptions != nil {
		clientOpts = config.ClientOptions.ApplyURI(config.URI)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongotier: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
			httpcache.GetLogger().Warn("mongotier: disconnect after ping error", "error", disconnectErr)
		}
		return nil, fmt.Errorf("mongotier: ping: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	tier := &Tier{
		client:     client,
		collection: collection,
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}

	if config.TTL > 0 {
		if err := tier.createTTLIndex(ctx, config.TTL); err != nil {
			if disconnectErr := client.Disconnect(ctx); disconnectErr != nil {
				httpcache.GetLogger().Warn("mongotier: disconnect after TTL index error", "error", disconnectErr)
			}
			return nil, fmt.Errorf("mongotier: create TTL index: %w", err)
		}
	}

	return tier, nil
}

// NewWithClient returns a Tier using an externally managed client. Close is
// then a no-op with respect to the client.
func NewWithClient(client *mongo.Client, database, collection string, config Config) (*Tier, error) {
	if client == nil {
		return nil, fmt.Errorf("mongotier: client is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongotier: database name is required")
	}

	defaults := DefaultConfig()
	if collection == "" {
		collection = defaults.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	return &Tier{
		client:     nil,
		collection: client.Database(database).Collection(collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}, nil
}

func (t *Tier) createTTLIndex(ctx context.Context, ttl time.Duration) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(int32(ttl.Seconds())).
			SetName("httpcache_ttl"),
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	_, err := t.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Get returns the value for key, or ok=false if absent.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var e entry
	err := t.collection.FindOne(ctx, bson.M{"_id": t.tierKey(key)}).Decode(&e)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongotier: get %q: %w", key, err)
	}
	return e.Data, true, nil
}

// Set stores value under key, overwriting any existing document.
func (t *Tier) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	doc := entry{Key: t.tierKey(key), Data: value, UpdatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	if _, err := t.collection.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		return fmt.Errorf("mongotier: set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (t *Tier) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if _, err := t.collection.DeleteOne(ctx, bson.M{"_id": t.tierKey(key)}); err != nil {
		return fmt.Errorf("mongotier: remove %q: %w", key, err)
	}
	return nil
}

// TierName identifies this tier for metrics and logging.
func (t *Tier) TierName() string { return "mongo" }

// Close disconnects the MongoDB client, if owned by this Tier.
func (t *Tier) Close(ctx context.Context) error {
	if t.client != nil {
		return t.client.Disconnect(ctx)
	}
	return nil
}
