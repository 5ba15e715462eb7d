package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"delivery-tracker/internal/features/orders/domain"
)

const (
	orderKeyPrefix = "order:"
	orderIndexKey  = "orders"
)

// RedisOrderRepository implements ports.OrderRepository on Redis.
// Orders are stored as JSON documents under order:{id}, with a set of ids for
// listing. Updates run inside a WATCH transaction keyed on the document, so a
// concurrent writer aborts the transaction instead of being overwritten.
type RedisOrderRepository struct {
	client *redis.Client
}

// NewRedisOrderRepository creates a repository on an existing Redis client.
func NewRedisOrderRepository(client *redis.Client) *RedisOrderRepository {
	return &RedisOrderRepository{client: client}
}

func orderKey(id string) string {
	return orderKeyPrefix + id
}

// Create persists a new order document.
func (r *RedisOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", order.ID, err)
	}

	ok, err := r.client.SetNX(ctx, orderKey(order.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	if !ok {
		return fmt.Errorf("order %s already exists: %w", order.ID, domain.ErrConflict)
	}

	if err := r.client.SAdd(ctx, orderIndexKey, order.ID).Err(); err != nil {
		return fmt.Errorf("failed to index order %s: %w", order.ID, err)
	}
	return nil
}

// Get retrieves an order by id.
func (r *RedisOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order %s: %w", id, err)
	}
	return &order, nil
}

// Update persists a mutated order, compare-and-swapping on Version.
// The stored document must still carry the version the caller read; otherwise
// the caller lost the race and gets domain.ErrConflict.
func (r *RedisOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	key := orderKey(order.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read order %s: %w", order.ID, err)
		}

		var stored domain.Order
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal order %s: %w", order.ID, err)
		}
		if stored.Version != order.Version {
			return domain.ErrConflict
		}

		next := *order
		next.Version++

		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("failed to marshal order %s: %w", order.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}

		order.Version = next.Version
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

// List returns every stored order.
func (r *RedisOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	ids, err := r.client.SMembers(ctx, orderIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list order ids: %w", err)
	}

	orders := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			// Index entry outlived the document; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
