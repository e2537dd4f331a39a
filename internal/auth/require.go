package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// RequireHuman ensures a human is authenticated.
func RequireHuman() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !principal.IsHuman() {
			return apperrors.NewForbidden("human caller required")
		}
		return c.Next()
	}
}

// RequireAgent ensures an agent is authenticated.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !principal.IsAgent() {
			return apperrors.NewForbidden("agent caller required")
		}
		return c.Next()
	}
}
