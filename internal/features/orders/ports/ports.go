package ports

import (
	"context"

	"delivery-tracker/internal/features/orders/domain"
)

// OrderRepository defines the secondary port for order storage.
type OrderRepository interface {
	// Create persists a new order. The id must not exist yet.
	Create(ctx context.Context, order *domain.Order) error

	// Get retrieves an order by id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Order, error)

	// Update persists a mutated order with a compare-and-swap on its version.
	// A concurrent writer that got there first makes this return
	// domain.ErrConflict; the caller re-reads and retries or gives up.
	Update(ctx context.Context, order *domain.Order) error

	// List returns all orders. The data set is bounded by order retention;
	// callers filter in memory.
	List(ctx context.Context) ([]*domain.Order, error)
}
