package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels checked with errors.Is across service boundaries.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")

	// ErrStaleUpdate marks an update carrying older information than the
	// stored state, such as a reputation notification with a lower
	// observed session count. Handled as a logged no-op, never retried.
	ErrStaleUpdate = errors.New("stale update")
)

// AppError pairs a wire-level error code with the HTTP status it maps to.
// Err, when set, lets errors.Is see through to the sentinel.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int, sentinel error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound builds a 404 for a missing resource.
func NotFound(resource string, id int64) *AppError {
	return newAppError("NOT_FOUND",
		fmt.Sprintf("%s with id %d not found", resource, id),
		http.StatusNotFound, ErrNotFound)
}

// AlreadyExists builds a 409 for a uniqueness violation.
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError("ALREADY_EXISTS",
		fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		http.StatusConflict, ErrAlreadyExists)
}

// InvalidInput builds a 400.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Conflict builds a 409.
func Conflict(message string) *AppError {
	return newAppError("CONFLICT", message, http.StatusConflict, ErrConflict)
}

// Internal builds a 500 wrapping the underlying cause. The cause stays out
// of the message so it never leaks to callers.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", "an internal error occurred",
		http.StatusInternalServerError, err)
}

// ServiceUnavailable builds a 503 for an unreachable dependency, such as
// the message broker being down at publish time.
func ServiceUnavailable(message string) *AppError {
	return newAppError("SERVICE_UNAVAILABLE", message,
		http.StatusServiceUnavailable, ErrServiceUnavail)
}

// Wrap adds context while keeping the chain intact for errors.Is.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus resolves err to the status code it should be served with.
// Unrecognized errors are a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict), errors.Is(err, ErrStaleUpdate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
