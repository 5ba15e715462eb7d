package domain

// Status represents the lifecycle state of an order.
type Status string

const (
	// StatusPlaced indicates the order has been created but not yet paid.
	StatusPlaced Status = "PLACED"
	// StatusPaid indicates payment has been confirmed.
	StatusPaid Status = "PAID"
	// StatusPreparing indicates the restaurant is preparing the order.
	StatusPreparing Status = "PREPARING"
	// StatusReadyForPickup indicates the order awaits a driver.
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	// StatusOutForDelivery indicates a driver is delivering the order.
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	// StatusDelivered is a terminal state: the order reached the customer.
	StatusDelivered Status = "DELIVERED"
	// StatusCancelled is a terminal state: the order was cancelled.
	StatusCancelled Status = "CANCELLED"
)

// DeliveryStatus represents the sub-lifecycle active while an order is out for delivery.
// The empty value means no delivery is in progress.
type DeliveryStatus string

const (
	// DeliveryStatusNone means no driver activity has been recorded.
	DeliveryStatusNone DeliveryStatus = ""
	// DeliveryStatusAssigned means a driver has been bound to the order.
	DeliveryStatusAssigned DeliveryStatus = "ASSIGNED"
	// DeliveryStatusPickedUp means the driver has collected the order.
	DeliveryStatusPickedUp DeliveryStatus = "PICKED_UP"
	// DeliveryStatusOnTheWay means the driver is en route to the customer.
	DeliveryStatusOnTheWay DeliveryStatus = "ON_THE_WAY"
	// DeliveryStatusDelivered means the driver has handed over the order.
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

// AllowedTransitions represents the order status flow as code.
// CANCELLED is reachable from every non-terminal state, but only through the
// cancellation policy (see EvaluateRefund), never via TransitionTo.
var AllowedTransitions = map[Status][]Status{
	StatusPlaced:         {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReadyForPickup, StatusCancelled},
	StatusReadyForPickup: {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
}

// deliveryNext is the linear delivery sub-lifecycle.
var deliveryNext = map[DeliveryStatus]DeliveryStatus{
	DeliveryStatusNone:     DeliveryStatusAssigned,
	DeliveryStatusAssigned: DeliveryStatusPickedUp,
	DeliveryStatusPickedUp: DeliveryStatusOnTheWay,
	DeliveryStatusOnTheWay: DeliveryStatusDelivered,
}

// CanTransition reports whether the order status machine allows from → to.
func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the legal next statuses from the given status.
func AllowedNext(from Status) []Status {
	return AllowedTransitions[from]
}

// CanDeliveryTransition reports whether the delivery machine allows from → to.
func CanDeliveryTransition(from, to DeliveryStatus) bool {
	return deliveryNext[from] == to && to != DeliveryStatusNone
}

// IsTerminalStatus reports whether no further mutation is accepted in this status.
func IsTerminalStatus(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

func statusNames(statuses []Status) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
