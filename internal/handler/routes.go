package handler

import (
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// Guards bundles the middleware chains handlers attach to their routes.
type Guards struct {
	User      []echo.MiddlewareFunc
	Admin     []echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

func NewGuards(jwtSecret string, users repository.UserRepository, limiter *middleware.RateLimiter) Guards {
	user := []echo.MiddlewareFunc{
		middleware.AuthJWT(jwtSecret),
		middleware.TokenVersionGuard(users),
	}
	admin := append(append([]echo.MiddlewareFunc{}, user...), middleware.AdminRoleGuard())
	return Guards{User: user, Admin: admin, RateLimit: limiter.Middleware()}
}

func (g Guards) user(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append(append([]echo.MiddlewareFunc{}, g.User...), extra...)
}

func (g Guards) admin() []echo.MiddlewareFunc {
	return append([]echo.MiddlewareFunc{}, g.Admin...)
}
