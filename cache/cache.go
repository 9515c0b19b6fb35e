// Package cache provides an optional plan cache keyed by the planning
// problem's content digest. Identical domain/problem pairs against the same
// endpoint are deterministic for a given solver package, so terminal
// successful results can be replayed without a network call.
package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pddlkit/sdk/types"
)

// Key derives the cache key for one planning problem: a SHA-256 digest over
// the endpoint, both PDDL documents, and the requested plan format.
func Key(serviceURL, domainText, problemText string, format types.PlanFormat) string {
	h := sha256.New()
	h.Write([]byte(serviceURL))
	h.Write([]byte{0})
	h.Write([]byte(domainText))
	h.Write([]byte{0})
	h.Write([]byte(problemText))
	h.Write([]byte{0})
	h.Write([]byte(format))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores finalized plan lists by key.
type Cache interface {
	// Get returns the cached plans for key and whether the key was
	// present.
	Get(ctx context.Context, key string) ([]*types.Plan, bool, error)

	// Put stores the plans under key for the cache's TTL.
	Put(ctx context.Context, key string, plans []*types.Plan) error

	// Close releases the cache's resources.
	Close() error
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]*types.Plan, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, []*types.Plan) error         { return nil }
func (Nop) Close() error                                             { return nil }

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// TTL is how long cached plans stay valid. Default: 1 hour.
	TTL time.Duration
}

// RedisCache implements Cache using go-redis/v9.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis plan cache with the given options.
func NewRedisCache(opts RedisOptions) (*RedisCache, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: opts.TTL}, nil
}

// Get returns the cached plans for key, if present and still decodable.
// An undecodable entry is treated as a miss and evicted.
func (c *RedisCache) Get(ctx context.Context, key string) ([]*types.Plan, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var plans []*types.Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		_ = c.client.Del(ctx, c.redisKey(key)).Err()
		return nil, false, nil
	}

	return plans, true, nil
}

// Put stores the plans under key with the configured TTL. Callers decide
// what is worth storing; Put itself accepts any plan list.
func (c *RedisCache) Put(ctx context.Context, key string, plans []*types.Plan) error {
	data, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("failed to marshal plans: %w", err)
	}

	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}

	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) redisKey(key string) string {
	return "plans:" + key
}
