package middleware

import (
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard rejects tokens whose tv no longer matches the stored user
// and replaces the token role with the live one.
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(string)
			if !ok || userID == "" {
				return usecase.UnauthorizedError()
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return usecase.UnauthorizedError()
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return usecase.UnauthorizedError()
			}
			if user.TokenVersion != tv {
				return usecase.UnauthorizedError()
			}
			if !user.IsActive {
				return usecase.ForbiddenError("user is inactive")
			}

			c.Set(CtxUserRoleKey, user.Role)
			return next(c)
		}
	}
}
