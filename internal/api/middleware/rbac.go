package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

// RBAC admits only callers whose role, set by Auth, is one of allowedRoles.
// Rejections surface as domain.ErrForbidden so the central error handler
// renders them like any other authorization failure.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(KeyRole).(string)
			if _, ok := allowed[role]; !ok {
				return fmt.Errorf("%w: role %q may not %s %s", domain.ErrForbidden, role, c.Request().Method, c.Path())
			}
			return next(c)
		}
	}
}

// AdminOnly is RBAC restricted to administrators.
func AdminOnly() echo.MiddlewareFunc {
	return RBAC(domain.RoleAdmin)
}
