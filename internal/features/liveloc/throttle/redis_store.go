package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delivery-tracker/internal/core/cache"
)

const throttleKeyPrefix = "throttle:"

// RedisStateStore keeps throttle state in the shared cache so every instance
// sees the same last-persisted sample per order. Entries expire after the
// configured TTL; an expired entry simply means the next sample persists.
type RedisStateStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisStateStore creates a redis-backed StateStore.
func NewRedisStateStore(c cache.Cache, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{cache: c, ttl: ttl}
}

// Get returns the state for the order, or nil when none is recorded.
func (r *RedisStateStore) Get(ctx context.Context, orderID string) (*State, error) {
	data, err := r.cache.Get(ctx, throttleKeyPrefix+orderID)
	if err != nil {
		// A miss just means no recorded state.
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read throttle state for %s: %w", orderID, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal throttle state for %s: %w", orderID, err)
	}
	return &state, nil
}

// Set replaces the state for the order.
func (r *RedisStateStore) Set(ctx context.Context, orderID string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal throttle state for %s: %w", orderID, err)
	}
	if err := r.cache.Set(ctx, throttleKeyPrefix+orderID, data, r.ttl); err != nil {
		return fmt.Errorf("failed to store throttle state for %s: %w", orderID, err)
	}
	return nil
}
