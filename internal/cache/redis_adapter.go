// Package cache wraps the Redis client used for state shared between
// server instances.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache: key not found")

// Client is the subset of Redis operations the application relies on.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)
	Ping(ctx context.Context) error
}

// GoRedisAdapter wraps a go-redis client to implement Client
type GoRedisAdapter struct {
	client *redis.Client
}

// NewGoRedisClient creates a new Redis client from a URL and returns an adapter
// URL format: redis://[:password@]host:port[/db]
// or: rediss://[:password@]host:port[/db] for TLS
func NewGoRedisClient(redisURL string) (*GoRedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &GoRedisAdapter{client: client}, nil
}

// Get retrieves a value from Redis. Missing keys return ErrMiss.
func (a *GoRedisAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

// IncrByFloat atomically adds delta to the float stored at key.
func (a *GoRedisAdapter) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	return a.client.IncrByFloat(ctx, key, delta).Result()
}

// Ping checks the connection
func (a *GoRedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (a *GoRedisAdapter) Close() error {
	return a.client.Close()
}
