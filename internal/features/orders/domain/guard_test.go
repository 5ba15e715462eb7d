package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func guardOrder(driver *Driver) *Order {
	o := NewOrder("ord-1", "usr-1", nil, 50000, "Calle 10", PaymentMethodOnline, time.Now())
	o.Status = StatusOutForDelivery
	o.Driver = driver
	return o
}

// TestAuthorizeDriverMutation_MatchingID verifies the id match path.
func TestAuthorizeDriverMutation_MatchingID(t *testing.T) {
	o := guardOrder(&Driver{ID: "drv-1", Phone: "+571"})
	assert.NoError(t, AuthorizeDriverMutation(o, "drv-1", ""))
}

// TestAuthorizeDriverMutation_WrongID verifies an id mismatch is forbidden even with a matching phone.
func TestAuthorizeDriverMutation_WrongID(t *testing.T) {
	o := guardOrder(&Driver{ID: "drv-1", Phone: "+571"})
	assert.ErrorIs(t, AuthorizeDriverMutation(o, "drv-2", "+571"), ErrForbidden)
}

// TestAuthorizeDriverMutation_PhoneFallback verifies phone matching when no id is bound.
func TestAuthorizeDriverMutation_PhoneFallback(t *testing.T) {
	o := guardOrder(&Driver{Phone: "+571"})
	assert.NoError(t, AuthorizeDriverMutation(o, "drv-1", "+571"))
	assert.ErrorIs(t, AuthorizeDriverMutation(o, "drv-1", "+572"), ErrForbidden)
	assert.ErrorIs(t, AuthorizeDriverMutation(o, "drv-1", ""), ErrForbidden)
}

// TestAuthorizeDriverMutation_UnclaimedPermissive verifies the deliberate open default
// for orders with neither id nor phone recorded.
func TestAuthorizeDriverMutation_UnclaimedPermissive(t *testing.T) {
	assert.NoError(t, AuthorizeDriverMutation(guardOrder(nil), "drv-1", ""))
	assert.NoError(t, AuthorizeDriverMutation(guardOrder(&Driver{Name: "Ana"}), "drv-1", ""))
}

// TestVisibleToDriver verifies the driver listing predicate.
func TestVisibleToDriver(t *testing.T) {
	claimable := guardOrder(nil)
	claimable.Status = StatusReadyForPickup
	assert.True(t, VisibleToDriver(claimable, "drv-1", ""))

	mine := guardOrder(&Driver{ID: "drv-1"})
	assert.True(t, VisibleToDriver(mine, "drv-1", ""))

	byPhone := guardOrder(&Driver{Phone: "+571"})
	assert.True(t, VisibleToDriver(byPhone, "drv-9", "+571"))

	foreign := guardOrder(&Driver{ID: "drv-2"})
	assert.False(t, VisibleToDriver(foreign, "drv-1", ""))

	unassignedPreparing := guardOrder(nil)
	unassignedPreparing.Status = StatusPreparing
	assert.False(t, VisibleToDriver(unassignedPreparing, "drv-1", ""))
}

// TestIsClaimable verifies the claimable pool predicate.
func TestIsClaimable(t *testing.T) {
	o := guardOrder(nil)
	o.Status = StatusReadyForPickup
	assert.True(t, IsClaimable(o))

	o.Driver = &Driver{ID: "drv-1"}
	assert.False(t, IsClaimable(o))

	o.Driver = nil
	o.Status = StatusOutForDelivery
	assert.False(t, IsClaimable(o))
}
