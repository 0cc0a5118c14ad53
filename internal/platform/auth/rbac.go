package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HasAnyRole reports whether the actor on ctx holds at least one of the
// wanted roles. Admin always passes.
func HasAnyRole(ctx context.Context, wanted ...string) bool {
	roles := RolesFromContext(ctx)
	for _, have := range roles {
		if have == RoleAdmin {
			return true
		}
		for _, w := range wanted {
			if have == w {
				return true
			}
		}
	}
	return false
}

// RequireRole gates a route group on the actor holding one of the given
// roles. Admin passes every gate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasAnyRole(c.Request().Context(), roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
