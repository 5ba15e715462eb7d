package domain

import (
	"fmt"
	"math"
	"time"

	orders "delivery-tracker/internal/features/orders/domain"
)

// Sample is one inbound driver position report.
type Sample struct {
	// OrderID is the order the driver is delivering.
	OrderID string `json:"order_id"`
	// Lat is the latitude in decimal degrees.
	Lat float64 `json:"lat"`
	// Lng is the longitude in decimal degrees.
	Lng float64 `json:"lng"`
}

// Validate checks the sample shape. Both ingress points run this before any
// other processing.
func (s Sample) Validate() error {
	if s.OrderID == "" || len(s.OrderID) > 64 {
		return fmt.Errorf("order id is required: %w", orders.ErrValidation)
	}
	if !isFinite(s.Lat) || !isFinite(s.Lng) {
		return fmt.Errorf("coordinates must be numeric: %w", orders.ErrValidation)
	}
	if s.Lat < -90 || s.Lat > 90 || s.Lng < -180 || s.Lng > 180 {
		return fmt.Errorf("coordinates out of range: %w", orders.ErrValidation)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Broadcast is the frame fanned out to everyone watching an order.
type Broadcast struct {
	OrderID   string    `json:"order_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}
