package middleware

import (
	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AdminRoleGuard lets ADMIN through. Must run after AuthJWT.
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return usecase.UnauthorizedError()
			}
// USER is refused
			if role != model.RoleAdmin {
				return usecase.ForbiddenError("admin only")
			}
			return next(c)
		}
	}
}
