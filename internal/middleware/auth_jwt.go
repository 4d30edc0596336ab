package middleware

import (
	"errors"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // string
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// AuthJWT verifies a bearer HS256 token and puts its claims on the context.
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return usecase.UnauthorizedError()
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return usecase.UnauthorizedError()
			}

			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || token == nil || !token.Valid {
				return usecase.UnauthorizedError()
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return usecase.UnauthorizedError()
			}

			userID, err := parseString(claims["sub"])
			if err != nil || userID == "" {
				return usecase.UnauthorizedError()
			}
			role, err := parseString(claims["role"])
			if err != nil || (model.Role(role) != model.RoleUser && model.Role(role) != model.RoleAdmin) {
				return usecase.UnauthorizedError()
			}
			tv, err := parseInt(claims["tv"])
			if err != nil || tv < 0 {
				return usecase.UnauthorizedError()
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, model.Role(role))
			c.Set(CtxTokenVersionKey, tv)
			return next(c)
		}
	}
}

// CallerFrom reads the principal AuthJWT stored on the context.
func CallerFrom(c echo.Context) (usecase.Caller, bool) {
	id, ok := c.Get(CtxUserIDKey).(string)
	if !ok || id == "" {
		return usecase.Caller{}, false
	}
	role, _ := c.Get(CtxUserRoleKey).(model.Role)
	return usecase.Caller{UserID: id, Role: role}, true
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
