package spend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"imob-crm/internal/cache"
)

// Counter accumulates paid-provider spend in USD. Implementations only ever
// increase; negative amounts are rejected.
type Counter interface {
	Total(ctx context.Context) (float64, error)
	Add(ctx context.Context, amount float64) (float64, error)
}

// ErrNegativeAmount is returned when a caller tries to lower the counter.
var ErrNegativeAmount = errors.New("spend: amount must not be negative")

// MemoryCounter keeps spend in process memory. It starts at zero and resets
// only when the process restarts.
type MemoryCounter struct {
	mu    sync.Mutex
	total float64
}

// NewMemoryCounter creates a counter starting at zero.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{}
}

// Total returns the accumulated spend.
func (m *MemoryCounter) Total(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

// Add increments the counter and returns the new total.
func (m *MemoryCounter) Add(_ context.Context, amount float64) (float64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += amount
	return m.total, nil
}

// RedisCounter shares spend between server instances through a single Redis
// key updated with INCRBYFLOAT. The key has no TTL.
type RedisCounter struct {
	client cache.Client
	key    string
}

// NewRedisCounter creates a counter stored under key.
func NewRedisCounter(client cache.Client, key string) *RedisCounter {
	if key == "" {
		key = "imobcrm:spend:paid"
	}
	return &RedisCounter{client: client, key: key}
}

// Total reads the accumulated spend. A missing key counts as zero.
func (r *RedisCounter) Total(ctx context.Context) (float64, error) {
	raw, err := r.client.Get(ctx, r.key)
	if errors.Is(err, cache.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("spend: read counter: %w", err)
	}
	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("spend: parse counter %q: %w", raw, err)
	}
	return total, nil
}

// Add increments the shared counter and returns the new total.
func (r *RedisCounter) Add(ctx context.Context, amount float64) (float64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	total, err := r.client.IncrByFloat(ctx, r.key, amount)
	if err != nil {
		return 0, fmt.Errorf("spend: increment counter: %w", err)
	}
	return total, nil
}

// Ping checks that the Redis store is reachable.
func (r *RedisCounter) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx); err != nil {
		return fmt.Errorf("spend: ping store: %w", err)
	}
	return nil
}
