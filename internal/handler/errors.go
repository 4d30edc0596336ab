package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorHandler is the single place errors become responses. Usecase errors
// keep their status and code; echo errors (404 route, bad bind) are mapped;
// anything else is a 500 whose cause is logged, not returned.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := toResponse(err)
		entry := log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": status,
		})
		if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
			entry = entry.WithField("request_id", rid)
		}
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Error("write error response")
		}
	}
}

func toResponse(err error) (int, ErrorResponse) {
	if he, ok := usecase.AsHTTPError(err); ok {
		code := he.Code
		if code == "" {
			code = usecase.CodeInternal
		}
		msg := he.Message
		if he.Status >= http.StatusInternalServerError && code == usecase.CodeInternal {
			msg = "internal error"
		}
		return he.Status, ErrorResponse{Message: msg, Code: code}
	}

	var ee *echo.HTTPError
	if errors.As(err, &ee) {
		msg := http.StatusText(ee.Code)
		if s, ok := ee.Message.(string); ok && s != "" {
			msg = s
		}
		return ee.Code, ErrorResponse{Message: msg, Code: codeForStatus(ee.Code)}
	}

	return http.StatusInternalServerError, ErrorResponse{Message: "internal error", Code: usecase.CodeInternal}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return usecase.CodeValidation
	case http.StatusUnauthorized:
		return usecase.CodeUnauthorized
	case http.StatusForbidden:
		return usecase.CodeForbidden
	case http.StatusNotFound:
		return usecase.CodeNotFound
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return usecase.CodeConflict
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	}
	return usecase.CodeInternal
}

func callerFrom(c echo.Context) (usecase.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return usecase.Caller{}, usecase.UnauthorizedError()
	}
	return caller, nil
}

func bindBody(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return usecase.ValidationError("invalid body")
	}
	return nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.ValidationError("invalid %s", name)
	}
	return n, nil
}

// queryTime accepts RFC3339 or a bare date. A bare "to" date covers the whole day.
func queryTime(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, usecase.ValidationError("invalid %s, want RFC3339 or YYYY-MM-DD", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
