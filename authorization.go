package identity

import (
	"github.com/gofiber/fiber/v2"
)

// Authorize fails with ErrForbidden unless principal holds one of allowed
func Authorize(principal *Principal, allowed ...Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	for _, role := range allowed {
		if roleMatches(principal.Role, role) {
			return nil
		}
	}

	return ErrForbidden
}

func roleMatches(have, want Role) bool {
	switch have {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return have == want
	default:
		return false
	}
}

// RequireRole must run after AuthenticationGate.Protect
func RequireRole(allowed ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromFiber(c)
		if err := Authorize(principal, allowed...); err != nil {
			return sendError(c, err)
		}
		return c.Next()
	}
}
