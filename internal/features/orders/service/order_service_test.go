package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracker/internal/features/orders/domain"
)

// memoryOrderRepository is an in-memory mock of ports.OrderRepository with the
// same version compare-and-swap contract as the redis adapter.
type memoryOrderRepository struct {
	docs map[string][]byte
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{docs: map[string][]byte{}}
}

func (m *memoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	if _, ok := m.docs[order.ID]; ok {
		return domain.ErrConflict
	}
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	m.docs[order.ID] = data
	return nil
}

func (m *memoryOrderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	data, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *memoryOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	stored, err := m.Get(ctx, order.ID)
	if err != nil {
		return err
	}
	if stored.Version != order.Version {
		return domain.ErrConflict
	}
	order.Version++
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	m.docs[order.ID] = data
	return nil
}

func (m *memoryOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(m.docs))
	for id := range m.docs {
		o, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func newTestService() (*OrderService, *memoryOrderRepository) {
	repo := newMemoryOrderRepository()
	return NewOrderService(repo, 200), repo
}

func placeTestOrder(t *testing.T, svc *OrderService) *domain.Order {
	t.Helper()
	order, err := svc.Place(context.Background(), PlaceCommand{
		UserID:        "usr-1",
		Items:         []domain.OrderItem{{Name: "Empanadas", Quantity: 6, PriceCents: 2000}},
		TotalCents:    12000,
		Address:       "Calle 85 #11-53",
		PaymentMethod: domain.PaymentMethodOnline,
	})
	require.NoError(t, err)
	return order
}

// advanceToReady walks a placed order to READY_FOR_PICKUP.
func advanceToReady(t *testing.T, svc *OrderService, id string) {
	t.Helper()
	ctx := context.Background()
	system := domain.Actor{Kind: domain.ActorKindSystem}
	_, err := svc.ConfirmPayment(ctx, id, system)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(ctx, id, domain.StatusPreparing, system)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(ctx, id, domain.StatusReadyForPickup, system)
	require.NoError(t, err)
}

// TestOrderService_Place verifies placement and persistence.
func TestOrderService_Place(t *testing.T) {
	svc, repo := newTestService()
	order := placeTestOrder(t, svc)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, domain.StatusPlaced, order.Status)

	stored, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)
}

// TestOrderService_Place_Validation verifies malformed commands are rejected.
func TestOrderService_Place_Validation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Place(context.Background(), PlaceCommand{UserID: "", TotalCents: 100, Address: "x", PaymentMethod: domain.PaymentMethodCOD})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Place(context.Background(), PlaceCommand{UserID: "usr-1", TotalCents: 100, Address: "x", PaymentMethod: "CRYPTO"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// TestOrderService_LifecycleToDelivered verifies the full happy path.
func TestOrderService_LifecycleToDelivered(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	order := placeTestOrder(t, svc)
	advanceToReady(t, svc, order.ID)

	accepted, err := svc.Accept(ctx, order.ID, domain.Driver{ID: "drv-1", Name: "Ana", Phone: "+571"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, accepted.Status)
	assert.Equal(t, domain.DeliveryStatusPickedUp, accepted.DeliveryStatus)

	_, err = svc.UpdateDeliveryStatus(ctx, order.ID, domain.DeliveryStatusOnTheWay, "drv-1", "")
	require.NoError(t, err)

	done, err := svc.UpdateDeliveryStatus(ctx, order.ID, domain.DeliveryStatusDelivered, "drv-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, done.Status)
	assert.Equal(t, domain.DeliveryStatusDelivered, done.DeliveryStatus)
}

// TestOrderService_UpdateDeliveryStatus_WrongDriver verifies the guard fires
// before any state machine check.
func TestOrderService_UpdateDeliveryStatus_WrongDriver(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	order := placeTestOrder(t, svc)
	advanceToReady(t, svc, order.ID)
	_, err := svc.Accept(ctx, order.ID, domain.Driver{ID: "drv-1"})
	require.NoError(t, err)

	_, err = svc.UpdateDeliveryStatus(ctx, order.ID, domain.DeliveryStatusOnTheWay, "drv-9", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusPickedUp, got.DeliveryStatus)
}

// TestOrderService_AssignDelivery verifies the admin path sets ASSIGNED.
func TestOrderService_AssignDelivery(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	order := placeTestOrder(t, svc)
	advanceToReady(t, svc, order.ID)

	assigned, err := svc.AssignDelivery(ctx, order.ID,
		domain.Driver{ID: "drv-1", Name: "Ana", Phone: "+571", VehicleNumber: "XYZ-123"},
		domain.Actor{Kind: domain.ActorKindAdmin, ID: "adm-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, assigned.Status)
	assert.Equal(t, domain.DeliveryStatusAssigned, assigned.DeliveryStatus)
}

// TestOrderService_Cancel_ByStranger verifies a foreign user cannot cancel.
func TestOrderService_Cancel_ByStranger(t *testing.T) {
	svc, _ := newTestService()
	order := placeTestOrder(t, svc)

	_, err := svc.Cancel(context.Background(), order.ID, domain.Actor{Kind: domain.ActorKindUser, ID: "usr-9"}, "not mine")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// TestOrderService_Cancel_Refund verifies the PREPARING refund outcome end to end.
func TestOrderService_Cancel_Refund(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	order := placeTestOrder(t, svc)
	system := domain.Actor{Kind: domain.ActorKindSystem}
	_, err := svc.ConfirmPayment(ctx, order.ID, system)
	require.NoError(t, err)
	_, err = svc.AdvanceStatus(ctx, order.ID, domain.StatusPreparing, system)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, domain.Actor{Kind: domain.ActorKindUser, ID: "usr-1"}, "took too long")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 50, cancelled.RefundPercentage)
	assert.Equal(t, int64(6000), cancelled.RefundAmountCents)
	assert.Equal(t, domain.RefundStatusPending, cancelled.RefundStatus)
}

// TestOrderService_DriverOrders verifies the claimable-plus-own listing.
func TestOrderService_DriverOrders(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	claimable := placeTestOrder(t, svc)
	advanceToReady(t, svc, claimable.ID)

	mine := placeTestOrder(t, svc)
	advanceToReady(t, svc, mine.ID)
	_, err := svc.Accept(ctx, mine.ID, domain.Driver{ID: "drv-1"})
	require.NoError(t, err)

	foreign := placeTestOrder(t, svc)
	advanceToReady(t, svc, foreign.ID)
	_, err = svc.Accept(ctx, foreign.ID, domain.Driver{ID: "drv-2"})
	require.NoError(t, err)

	notReady := placeTestOrder(t, svc)

	orders, err := svc.DriverOrders(ctx, "drv-1", "")
	require.NoError(t, err)

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{claimable.ID, mine.ID}, ids)
	assert.NotContains(t, ids, foreign.ID)
	assert.NotContains(t, ids, notReady.ID)
}

// TestOrderService_ConcurrentMutators verifies the CAS surfaces a retryable conflict.
func TestOrderService_ConcurrentMutators(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	order := placeTestOrder(t, svc)

	// A stale copy simulates a concurrent writer that read before us.
	stale, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, order.ID, domain.Actor{Kind: domain.ActorKindSystem})
	require.NoError(t, err)

	require.NoError(t, stale.Cancel(domain.Actor{Kind: domain.ActorKindUser, ID: "usr-1"}, "race", time.Now()))
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrConflict)
}
