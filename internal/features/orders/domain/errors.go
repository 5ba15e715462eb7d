package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the caller is not entitled to mutate the order.
	ErrForbidden = errors.New("caller not authorized for this order")
	// ErrInvalidTransition is returned when a state machine rejects the requested next state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrPreconditionFailed is returned when the operation is not valid in the current status.
	ErrPreconditionFailed = errors.New("operation not valid in current status")
	// ErrValidation is returned for malformed payloads.
	ErrValidation = errors.New("invalid payload")
	// ErrConflict is returned when a concurrent mutation won the race.
	// The losing request can be retried.
	ErrConflict = errors.New("order was modified concurrently")
)

// InvalidTransitionError reports a rejected state machine transition together
// with the current state and the legal next states.
type InvalidTransitionError struct {
	// Current is the state the order is in.
	Current string
	// Requested is the state that was asked for.
	Requested string
	// Allowed lists the legal next states from Current.
	Allowed []string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s (allowed: %s)",
		e.Current, e.Requested, strings.Join(e.Allowed, ", "))
}

// Unwrap makes the error match ErrInvalidTransition under errors.Is.
func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PreconditionError reports an operation rejected because of the order's
// current status, which is included so the caller can explain why.
type PreconditionError struct {
	// Current is the order status at the time of the request.
	Current Status
	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s (current status: %s)", e.Reason, e.Current)
}

// Unwrap makes the error match ErrPreconditionFailed under errors.Is.
func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}
