package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Well-known caller roles.
const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

const localsKey = "caller"

// Caller is the opaque identity of the authenticated requester.
// Session issuance and verification happen upstream; this service only
// consumes the resolved {id, role, phone} triple.
type Caller struct {
	// ID is the unique identifier of the caller.
	ID string
	// Role is one of RoleUser, RoleDriver, RoleAdmin.
	Role string
	// Phone is the caller's phone number, when known.
	Phone string
}

// Middleware extracts the caller identity from the X-Caller-* headers and
// stores it in the request locals. Requests without an identity pass through;
// role enforcement happens per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := Caller{
			ID:    c.Get("X-Caller-Id"),
			Role:  c.Get("X-Caller-Role"),
			Phone: c.Get("X-Caller-Phone"),
		}
		if caller.ID != "" || caller.Phone != "" {
			c.Locals(localsKey, caller)
		}
		return c.Next()
	}
}

// FromCtx returns the caller stored by Middleware, if any.
func FromCtx(c *fiber.Ctx) (Caller, bool) {
	caller, ok := c.Locals(localsKey).(Caller)
	return caller, ok
}

// RequireRole rejects the request with 403 unless the caller has the given role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := FromCtx(c)
		if !ok || caller.Role != role {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"message": "caller role " + role + " required",
			})
		}
		return c.Next()
	}
}
