package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"delivery-tracker/internal/features/orders/domain"
	"delivery-tracker/internal/features/orders/ports"
)

// OrderService implements the order lifecycle operations on top of the
// repository port. Mutations are read-modify-write; the repository's
// compare-and-swap turns concurrent writers into domain.ErrConflict instead
// of silent overwrites.
type OrderService struct {
	repo       ports.OrderRepository
	historyCap int
	now        func() time.Time
}

// NewOrderService creates a new OrderService. historyCap bounds the status
// history per order; zero falls back to domain.DefaultMaxHistory.
func NewOrderService(repo ports.OrderRepository, historyCap int) *OrderService {
	return &OrderService{
		repo:       repo,
		historyCap: historyCap,
		now:        time.Now,
	}
}

// PlaceCommand carries everything needed to place an order.
type PlaceCommand struct {
	UserID        string
	Items         []domain.OrderItem
	TotalCents    int64
	Address       string
	PaymentMethod domain.PaymentMethod
}

// Place creates a new order in the PLACED state.
func (s *OrderService) Place(ctx context.Context, cmd PlaceCommand) (*domain.Order, error) {
	if cmd.UserID == "" || cmd.Address == "" || cmd.TotalCents <= 0 {
		return nil, fmt.Errorf("user id, address and a positive total are required: %w", domain.ErrValidation)
	}
	if cmd.PaymentMethod != domain.PaymentMethodCOD && cmd.PaymentMethod != domain.PaymentMethodOnline {
		return nil, fmt.Errorf("unknown payment method %q: %w", cmd.PaymentMethod, domain.ErrValidation)
	}

	order := domain.NewOrder(uuid.NewString(), cmd.UserID, cmd.Items, cmd.TotalCents, cmd.Address, cmd.PaymentMethod, s.now())
	order.HistoryCap = s.historyCap

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("service: failed to place order: %w", err)
	}
	return order, nil
}

// ConfirmPayment applies the payment-confirmed fact reported by the gateway.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string, actor domain.Actor) (*domain.Order, error) {
	return s.mutate(ctx, id, func(o *domain.Order) error {
		return o.MarkPaid(actor, s.now())
	})
}

// AdvanceStatus moves the order along the forward kitchen flow
// (PAID → PREPARING → READY_FOR_PICKUP).
func (s *OrderService) AdvanceStatus(ctx context.Context, id string, next domain.Status, actor domain.Actor) (*domain.Order, error) {
	return s.mutate(ctx, id, func(o *domain.Order) error {
		return o.TransitionTo(next, actor, "status "+string(next), s.now())
	})
}

// AssignDelivery is the administrative driver assignment.
func (s *OrderService) AssignDelivery(ctx context.Context, id string, driver domain.Driver, actor domain.Actor) (*domain.Order, error) {
	if driver.ID == "" && driver.Phone == "" {
		return nil, fmt.Errorf("driver id or phone is required: %w", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(o *domain.Order) error {
		return o.AssignDriver(driver, actor, s.now())
	})
}

// Accept lets a driver claim a ready order, jumping straight to PICKED_UP.
func (s *OrderService) Accept(ctx context.Context, id string, driver domain.Driver) (*domain.Order, error) {
	if driver.ID == "" {
		return nil, fmt.Errorf("driver id is required: %w", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(o *domain.Order) error {
		return o.AcceptBy(driver, s.now())
	})
}

// UpdateDeliveryStatus advances the delivery sub-lifecycle on behalf of the
// order's driver.
func (s *OrderService) UpdateDeliveryStatus(ctx context.Context, id string, next domain.DeliveryStatus, callerID, callerPhone string) (*domain.Order, error) {
	return s.mutate(ctx, id, func(o *domain.Order) error {
		if err := domain.AuthorizeDriverMutation(o, callerID, callerPhone); err != nil {
			return err
		}
		return o.SetDeliveryStatus(next, domain.Actor{Kind: domain.ActorKindDriver, ID: callerID}, s.now())
	})
}

// Cancel applies the cancellation policy on behalf of the customer (or an
// administrative actor).
func (s *OrderService) Cancel(ctx context.Context, id string, by domain.Actor, reason string) (*domain.Order, error) {
	return s.mutate(ctx, id, func(o *domain.Order) error {
		if by.Kind == domain.ActorKindUser && by.ID != o.UserID {
			return domain.ErrForbidden
		}
		return o.Cancel(by, reason, s.now())
	})
}

// Get retrieves the full aggregate for the tracking snapshot.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order.HistoryCap = s.historyCap
	return order, nil
}

// DriverOrders lists the claimable pool plus the caller's own in-progress orders.
func (s *OrderService) DriverOrders(ctx context.Context, driverID, driverPhone string) ([]*domain.Order, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}

	visible := make([]*domain.Order, 0, len(all))
	for _, o := range all {
		if o.IsTerminal() {
			continue
		}
		if domain.VisibleToDriver(o, driverID, driverPhone) {
			visible = append(visible, o)
		}
	}
	return visible, nil
}

// mutate runs one read-modify-write cycle against the repository.
func (s *OrderService) mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
