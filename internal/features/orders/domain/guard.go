package domain

// AuthorizeDriverMutation checks that the caller is the driver entitled to
// mutate this order's live location and delivery status.
//
// Matching is by driver id first, then by recorded phone when no id is bound
// yet. An order with neither an id nor a phone recorded accepts the update: a
// still-unclaimed order being probed is allowed through on purpose.
func AuthorizeDriverMutation(o *Order, callerID, callerPhone string) error {
	if o.Driver == nil {
		return nil
	}
	if o.Driver.ID != "" {
		if o.Driver.ID == callerID {
			return nil
		}
		return ErrForbidden
	}
	if o.Driver.Phone != "" {
		if callerPhone != "" && o.Driver.Phone == callerPhone {
			return nil
		}
		return ErrForbidden
	}
	return nil
}

// VisibleToDriver reports whether the order belongs in a driver's listing:
// either part of the claimable pool or already assigned to them.
func VisibleToDriver(o *Order, driverID, driverPhone string) bool {
	if IsClaimable(o) {
		return true
	}
	if o.Driver == nil {
		return false
	}
	if o.Driver.ID != "" && o.Driver.ID == driverID {
		return true
	}
	return o.Driver.Phone != "" && driverPhone != "" && o.Driver.Phone == driverPhone
}

// IsClaimable reports whether the order sits in the claimable pool: ready for
// pickup with no driver bound yet.
func IsClaimable(o *Order) bool {
	return o.Status == StatusReadyForPickup && (o.Driver == nil || o.Driver.ID == "")
}
