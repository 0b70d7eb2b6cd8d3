package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// LocalsIdentity is the fiber.Locals key holding the resolved *Identity.
const LocalsIdentity = "identity"

// ErrorResponse is the JSON body of every denied request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func unauthorized(c *fiber.Ctx, state ResolveState) error {
	msg := "authentication required"

	switch state {
	case StateExpired:
		msg = "session expired"
	case StateInvalid:
		msg = "invalid credentials"
	}

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: msg})
}

// RequirePermission creates Fiber middleware that requires a specific permission.
// The handler chain only continues on allow, the identity is then stored in the locals.
func RequirePermission(resolver *Resolver, guard *Guard, permission string) fiber.Handler {
	if !IsKnown(permission) {
		panic("auth: route declares unknown permission " + permission)
	}

	return func(c *fiber.Ctx) error {
		identity, state := resolver.Resolve(c.UserContext(), resolver.FromRequest(c))

		d := guard.Authorize(c.UserContext(), identity, permission)

		switch {
		case d.Allowed:
			c.Locals(LocalsIdentity, identity)
			return c.Next()
		case d.Err != nil:
			log.Error().Err(d.Err).Uint64("user_id", identity.UserID).Str("permission", permission).
				Msg("Failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
		case d.Reason == DenyUnauthenticated:
			return unauthorized(c, state)
		default:
			log.Warn().Uint64("user_id", identity.UserID).Str("permission", permission).
				Msg("User lacks required permission")

			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden"})
		}
	}
}

// RequireIdentity creates Fiber middleware that only requires an authenticated user.
func RequireIdentity(resolver *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, state := resolver.Resolve(c.UserContext(), resolver.FromRequest(c))
		if identity == nil {
			return unauthorized(c, state)
		}

		c.Locals(LocalsIdentity, identity)

		return c.Next()
	}
}

// IdentityFromContext returns the identity stored by RequirePermission or RequireIdentity.
func IdentityFromContext(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(LocalsIdentity).(*Identity)
	return identity
}
