package domain

import (
	"fmt"
	"time"
)

// Legacy statuses referenced by the refund table but not produced by the
// current order machine. Orders written by an earlier lifecycle revision may
// still carry them, so the policy keeps their rows instead of silently
// mapping them onto PAID / READY_FOR_PICKUP.
const (
	legacyStatusAccepted Status = "ACCEPTED"
	legacyStatusReady    Status = "READY"
)

// acceptedFullRefundWindow is how long after acceptance a legacy ACCEPTED
// order still refunds in full.
const acceptedFullRefundWindow = 3 * time.Minute

// RefundDecision is the outcome of the cancellation policy.
type RefundDecision struct {
	// CanCancel reports whether a cancel request is honored at all.
	CanCancel bool
	// RefundPercentage is the fraction of the charge returned, 0–100.
	RefundPercentage int
}

// EvaluateRefund computes the cancellation decision as a pure function of the
// current status, the acceptance time (legacy orders only) and the clock.
//
//	PLACED            → cancellable, 100%
//	ACCEPTED (legacy) → cancellable, 100% within 3 minutes of acceptance, 80% after
//	PREPARING         → cancellable, 50%
//	anything later    → not cancellable
func EvaluateRefund(status Status, acceptedAt *time.Time, now time.Time) RefundDecision {
	switch status {
	case StatusPlaced:
		return RefundDecision{CanCancel: true, RefundPercentage: 100}
	case legacyStatusAccepted:
		pct := 80
		if acceptedAt != nil && now.Sub(*acceptedAt) <= acceptedFullRefundWindow {
			pct = 100
		}
		return RefundDecision{CanCancel: true, RefundPercentage: pct}
	case StatusPreparing:
		return RefundDecision{CanCancel: true, RefundPercentage: 50}
	default:
		// READY (legacy), READY_FOR_PICKUP, OUT_FOR_DELIVERY, DELIVERED,
		// CANCELLED and anything unknown: too late to cancel.
		return RefundDecision{}
	}
}

// RefundAmountCents rounds the refunded amount. Nothing is refunded when no
// money was collected.
func RefundAmountCents(totalCents int64, percentage int, collected bool) int64 {
	if !collected || percentage <= 0 {
		return 0
	}
	return (totalCents*int64(percentage) + 50) / 100
}

func cancelNote(percentage int, amountCents int64) string {
	if amountCents <= 0 {
		return "order cancelled, no refund due"
	}
	return fmt.Sprintf("order cancelled, refund %d%% (%d)", percentage, amountCents)
}
