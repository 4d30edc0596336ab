package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUpstream     = "upstream_error"
	CodeInternal     = "internal_error"
)

// HTTPError is the only error type usecases hand back to handlers. Code is a
// stable token for clients; Message is for humans.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Code: codeFor(status), Message: message}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	}
	return CodeInternal
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func ValidationError(format string, args ...any) error {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func UnauthorizedError() error {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func ForbiddenError(message string) error {
	return NewHTTPError(http.StatusForbidden, message)
}

func NotFoundError(what string) error {
	return NewHTTPError(http.StatusNotFound, what+" not found")
}

func ConflictError(message string, err error) error {
	return &HTTPError{Status: http.StatusConflict, Code: CodeConflict, Message: message, Err: err}
}

// UpstreamError reports a failed payment or carrier call. The upstream message
// is part of the response body.
func UpstreamError(service string, err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeUpstream,
		Message: fmt.Sprintf("%s request failed: %v", service, err),
		Err:     err,
	}
}

func InternalError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error", Err: err}
}

// storeError maps repository and domain errors onto HTTP errors. HTTPErrors pass through.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrUserNotFound):
		return NotFoundError(what)
	case errors.Is(err, repo.ErrConflict):
		return ConflictError(what+" was modified concurrently, retry", err)
	case errors.Is(err, repo.ErrLockNotAcquired):
		return ConflictError(what+" is being updated, retry", err)
	case errors.Is(err, model.ErrInvalidStage),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrIllegalTransition),
		errors.Is(err, model.ErrStatusConflictsWithStage),
		errors.Is(err, model.ErrInvalidPaymentID):
		return &HTTPError{Status: http.StatusBadRequest, Code: CodeValidation, Message: err.Error(), Err: err}
	}
	return InternalError(err)
}
