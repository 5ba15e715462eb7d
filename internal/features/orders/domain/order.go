package domain

import (
	"time"
)

// DefaultMaxHistory is the status history cap applied when none is configured.
const DefaultMaxHistory = 200

// PaymentMethod is how the customer pays for the order.
type PaymentMethod string

const (
	// PaymentMethodCOD is cash on delivery; nothing is collected upfront.
	PaymentMethodCOD PaymentMethod = "COD"
	// PaymentMethodOnline is an online payment collected at order time.
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// RefundStatus tracks the state of a refund owed to the customer.
type RefundStatus string

const (
	// RefundStatusNone means no refund is owed.
	RefundStatusNone RefundStatus = ""
	// RefundStatusPending means a refund is owed and awaits execution by the
	// payment collaborator.
	RefundStatusPending RefundStatus = "PENDING"
)

// ActorKind tags who performed a mutation.
type ActorKind string

const (
	// ActorKindUser is the customer who placed the order.
	ActorKindUser ActorKind = "user"
	// ActorKindDriver is the delivery driver.
	ActorKindDriver ActorKind = "driver"
	// ActorKindAdmin is an administrative operator.
	ActorKindAdmin ActorKind = "admin"
	// ActorKindSystem is an automated process.
	ActorKindSystem ActorKind = "system"
)

// Actor identifies who performed a mutation, as a tagged variant instead of a
// loosely-typed id that sometimes holds a user reference and sometimes a bare
// string.
type Actor struct {
	// Kind is the category of actor.
	Kind ActorKind `json:"kind"`
	// ID is the actor's identifier, empty for anonymous system actions.
	ID string `json:"id,omitempty"`
}

// Payment is the opaque payment fact attached to the order.
type Payment struct {
	// Method is how the customer pays.
	Method PaymentMethod `json:"method"`
	// Confirmed reports whether money has actually been collected.
	Confirmed bool `json:"confirmed"`
}

// Collected reports whether there is money to refund: an online method, or an
// explicit confirmation for anything else.
func (p Payment) Collected() bool {
	return p.Method == PaymentMethodOnline || p.Confirmed
}

// Driver holds the identity of the assigned delivery driver.
type Driver struct {
	// ID is the driver's unique identifier.
	ID string `json:"id"`
	// Name is the driver's display name.
	Name string `json:"name"`
	// Phone is the driver's contact number.
	Phone string `json:"phone"`
	// VehicleNumber is the driver's vehicle plate.
	VehicleNumber string `json:"vehicle_number"`
}

// GeoPoint is a raw coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a persisted coordinate pair with its write time.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	// UpdatedAt only ever advances; a write that would not move it is skipped.
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is a line item snapshot taken at order time.
type OrderItem struct {
	// Name is the item name at order time.
	Name string `json:"name"`
	// Quantity is the number of units.
	Quantity int `json:"quantity"`
	// PriceCents is the unit price snapshot in minor currency units.
	PriceCents int64 `json:"price_cents"`
}

// HistoryEntry is one row of the order's append-only audit trail.
type HistoryEntry struct {
	Status         Status         `json:"status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
	Note           string         `json:"note,omitempty"`
	Actor          Actor          `json:"actor"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Order is the aggregate root of the lifecycle and live-tracking core.
type Order struct {
	// ID is the unique, immutable order identifier.
	ID string `json:"id"`
	// UserID is the customer who placed the order.
	UserID string `json:"user_id"`
	// Status is the lifecycle state.
	Status Status `json:"status"`
	// DeliveryStatus is the delivery sub-state; empty unless the order is (or
	// finished) out for delivery.
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
	// Items are the line item snapshots.
	Items []OrderItem `json:"items"`
	// TotalCents is the charged amount in minor currency units.
	TotalCents int64 `json:"total_cents"`
	// Address is the delivery address.
	Address string `json:"address"`
	// Payment is the opaque payment fact.
	Payment Payment `json:"payment"`
	// Driver is the assigned driver, nil until assignment.
	Driver *Driver `json:"driver,omitempty"`
	// CurrentLocation is the last durably persisted driver position. It may
	// lag the live broadcast by design.
	CurrentLocation *Location `json:"current_location,omitempty"`
	// UserLocation is the last known customer position. Low-frequency, never
	// throttled.
	UserLocation *GeoPoint `json:"user_location,omitempty"`
	// StatusHistory is the bounded, oldest-first audit trail.
	StatusHistory []HistoryEntry `json:"status_history"`

	// Cancellation outcome fields, set together by Cancel.
	CancelledBy       *Actor       `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time   `json:"cancelled_at,omitempty"`
	CancelReason      string       `json:"cancel_reason,omitempty"`
	RefundPercentage  int          `json:"refund_percentage,omitempty"`
	RefundAmountCents int64        `json:"refund_amount_cents,omitempty"`
	RefundStatus      RefundStatus `json:"refund_status,omitempty"`

	// AcceptedAt survives from an earlier lifecycle revision whose refund
	// policy still references it; the current machine never sets it.
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// CreatedAt is the placement time.
	CreatedAt time.Time `json:"created_at"`
	// Version increments on every successful write; the repository rejects
	// stale writes by comparing it.
	Version int64 `json:"version"`

	// HistoryCap overrides DefaultMaxHistory when positive. Runtime
	// configuration, not part of the persisted document.
	HistoryCap int `json:"-"`
}

// NewOrder creates an order in the PLACED state with its first history entry.
func NewOrder(id, userID string, items []OrderItem, totalCents int64, address string, method PaymentMethod, now time.Time) *Order {
	o := &Order{
		ID:         id,
		UserID:     userID,
		Status:     StatusPlaced,
		Items:      items,
		TotalCents: totalCents,
		Address:    address,
		Payment:    Payment{Method: method},
		CreatedAt:  now,
	}
	o.recordHistory("order placed", Actor{Kind: ActorKindUser, ID: userID}, now)
	return o
}

// historyCap returns the effective history bound.
func (o *Order) historyCap() int {
	if o.HistoryCap > 0 {
		return o.HistoryCap
	}
	return DefaultMaxHistory
}

// recordHistory appends one entry, evicting the oldest entries beyond the cap.
func (o *Order) recordHistory(note string, actor Actor, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{
		Status:         o.Status,
		DeliveryStatus: o.DeliveryStatus,
		Note:           note,
		Actor:          actor,
		Timestamp:      now,
	})
	if overflow := len(o.StatusHistory) - o.historyCap(); overflow > 0 {
		o.StatusHistory = append(o.StatusHistory[:0:0], o.StatusHistory[overflow:]...)
	}
}

// IsTerminal reports whether the order accepts no further mutation.
func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

// TransitionTo moves the order along the forward status flow.
// Cancellation goes through Cancel, not here.
func (o *Order) TransitionTo(next Status, actor Actor, note string, now time.Time) error {
	if next == StatusCancelled || !CanTransition(o.Status, next) {
		return &InvalidTransitionError{
			Current:   string(o.Status),
			Requested: string(next),
			Allowed:   statusNames(AllowedNext(o.Status)),
		}
	}
	o.Status = next
	o.recordHistory(note, actor, now)
	return nil
}

// MarkPaid applies the external payment-confirmed fact: PLACED → PAID.
func (o *Order) MarkPaid(actor Actor, now time.Time) error {
	if err := o.TransitionTo(StatusPaid, actor, "payment confirmed", now); err != nil {
		return err
	}
	o.Payment.Confirmed = true
	return nil
}

// AssignDriver is the administrative assignment path: it binds the driver and
// forces the order out for delivery awaiting pickup.
func (o *Order) AssignDriver(d Driver, actor Actor, now time.Time) error {
	if o.IsTerminal() {
		return &PreconditionError{Current: o.Status, Reason: "cannot assign a driver to a closed order"}
	}
	o.Driver = &d
	o.Status = StatusOutForDelivery
	o.DeliveryStatus = DeliveryStatusAssigned
	o.recordHistory("driver "+d.Name+" assigned", actor, now)
	return nil
}

// AcceptBy is the driver-accept shortcut: a driver claims a READY_FOR_PICKUP
// order and the order jumps straight to OUT_FOR_DELIVERY / PICKED_UP,
// bypassing ASSIGNED. Distinct from the admin assignment path on purpose.
func (o *Order) AcceptBy(d Driver, now time.Time) error {
	if o.Status != StatusReadyForPickup {
		return &PreconditionError{Current: o.Status, Reason: "order is not ready for pickup"}
	}
	if o.Driver != nil && o.Driver.ID != "" && o.Driver.ID != d.ID {
		return ErrForbidden
	}
	o.Driver = &d
	o.Status = StatusOutForDelivery
	o.DeliveryStatus = DeliveryStatusPickedUp
	o.recordHistory("driver "+d.Name+" accepted the order", Actor{Kind: ActorKindDriver, ID: d.ID}, now)
	return nil
}

// SetDeliveryStatus advances the delivery sub-lifecycle. Re-sending the
// current value is a no-op success. The final DELIVERED step also closes the
// order status in the same update.
func (o *Order) SetDeliveryStatus(next DeliveryStatus, actor Actor, now time.Time) error {
	if o.Status != StatusOutForDelivery {
		return &PreconditionError{Current: o.Status, Reason: "delivery status requires an order out for delivery"}
	}
	if next == o.DeliveryStatus {
		return nil
	}
	if !CanDeliveryTransition(o.DeliveryStatus, next) {
		return &InvalidTransitionError{
			Current:   string(o.DeliveryStatus),
			Requested: string(next),
			Allowed:   []string{string(deliveryNext[o.DeliveryStatus])},
		}
	}
	o.DeliveryStatus = next
	if next == DeliveryStatusDelivered {
		o.Status = StatusDelivered
	}
	o.recordHistory("delivery status "+string(next), actor, now)
	return nil
}

// Cancel applies the cancellation policy; on success it closes the order and
// records the refund outcome.
func (o *Order) Cancel(by Actor, reason string, now time.Time) error {
	decision := EvaluateRefund(o.Status, o.AcceptedAt, now)
	if !decision.CanCancel {
		return &PreconditionError{Current: o.Status, Reason: "order can no longer be cancelled"}
	}

	o.Status = StatusCancelled
	o.CancelledBy = &by
	o.CancelledAt = &now
	o.CancelReason = reason
	o.RefundPercentage = decision.RefundPercentage
	o.RefundAmountCents = RefundAmountCents(o.TotalCents, decision.RefundPercentage, o.Payment.Collected())
	if o.RefundAmountCents > 0 {
		o.RefundStatus = RefundStatusPending
	}
	o.recordHistory(cancelNote(o.RefundPercentage, o.RefundAmountCents), by, now)
	return nil
}

// ApplyDriverLocation records a durably persisted driver position. It returns
// false without mutating when the write would not advance UpdatedAt.
func (o *Order) ApplyDriverLocation(lat, lng float64, now time.Time) bool {
	if o.CurrentLocation != nil && !now.After(o.CurrentLocation.UpdatedAt) {
		return false
	}
	o.CurrentLocation = &Location{Lat: lat, Lng: lng, UpdatedAt: now}
	return true
}

// SetUserLocation records the customer's last known position.
func (o *Order) SetUserLocation(lat, lng float64) {
	o.UserLocation = &GeoPoint{Lat: lat, Lng: lng}
}
