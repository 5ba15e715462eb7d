package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracker/internal/features/orders/domain"
)

func newTestRepository(t *testing.T) *RedisOrderRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisOrderRepository(client)
}

func placedOrder(id string) *domain.Order {
	return domain.NewOrder(id, "usr-1",
		[]domain.OrderItem{{Name: "Arepa", Quantity: 2, PriceCents: 8000}},
		16000, "Carrera 7 #45-10", domain.PaymentMethodOnline, time.Now().UTC())
}

// TestRedisOrderRepository_CreateGet verifies the JSON round trip.
func TestRedisOrderRepository_CreateGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	order := placedOrder("ord-1")
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, domain.StatusPlaced, got.Status)
	assert.Equal(t, int64(16000), got.TotalCents)
	require.Len(t, got.StatusHistory, 1)
}

// TestRedisOrderRepository_CreateDuplicate verifies id uniqueness.
func TestRedisOrderRepository_CreateDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, placedOrder("ord-1")))
	assert.ErrorIs(t, repo.Create(ctx, placedOrder("ord-1")), domain.ErrConflict)
}

// TestRedisOrderRepository_GetNotFound verifies the missing-order error.
func TestRedisOrderRepository_GetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestRedisOrderRepository_Update verifies a mutation persists and bumps the version.
func TestRedisOrderRepository_Update(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	order := placedOrder("ord-1")
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, order.MarkPaid(domain.Actor{Kind: domain.ActorKindSystem}, time.Now().UTC()))
	require.NoError(t, repo.Update(ctx, order))
	assert.Equal(t, int64(1), order.Version)

	got, err := repo.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

// TestRedisOrderRepository_Update_StaleVersion verifies the CAS rejects a lost race.
func TestRedisOrderRepository_Update_StaleVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	order := placedOrder("ord-1")
	require.NoError(t, repo.Create(ctx, order))

	// Two readers load version 0.
	first, err := repo.Get(ctx, "ord-1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "ord-1")
	require.NoError(t, err)

	require.NoError(t, first.MarkPaid(domain.Actor{Kind: domain.ActorKindSystem}, time.Now().UTC()))
	require.NoError(t, repo.Update(ctx, first))

	// The second writer is now stale and must lose.
	require.NoError(t, second.Cancel(domain.Actor{Kind: domain.ActorKindUser, ID: "usr-1"}, "late", time.Now().UTC()))
	assert.ErrorIs(t, repo.Update(ctx, second), domain.ErrConflict)

	got, err := repo.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status, "the losing write must not overwrite")
}

// TestRedisOrderRepository_Update_NotFound verifies updating a missing order fails.
func TestRedisOrderRepository_Update_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Update(context.Background(), placedOrder("ghost"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestRedisOrderRepository_List verifies listing returns every stored order.
func TestRedisOrderRepository_List(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, placedOrder("ord-1")))
	require.NoError(t, repo.Create(ctx, placedOrder("ord-2")))
	require.NoError(t, repo.Create(ctx, placedOrder("ord-3")))

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 3)

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"ord-1", "ord-2", "ord-3"}, ids)
}
