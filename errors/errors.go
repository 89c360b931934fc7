// Package errors defines the structured application error used across the
// push service, together with constructors for each failure class of the
// notification path.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ValidationError      ErrorType = "VALIDATION_ERROR"
	AuthError            ErrorType = "AUTHENTICATION_ERROR"
	ServerError          ErrorType = "SERVER_ERROR"
	ConfigurationMissing ErrorType = "CONFIGURATION_MISSING"
	TokenGenerationError ErrorType = "TOKEN_GENERATION_ERROR"
	DispatchError        ErrorType = "DISPATCH_ERROR"
	PersistenceError     ErrorType = "PERSISTENCE_ERROR"
	UnimplementedError   ErrorType = "UNIMPLEMENTED_PROVIDER"
	RateLimitError       ErrorType = "RATE_LIMIT_EXCEEDED"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	// UpstreamStatus is the status code returned by the push gateway, if any.
	UpstreamStatus int   `json:"-"`
	Raw            error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status the HTTP layer should answer with.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// WithStatus overrides the HTTP status the error is rendered with.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// MissingConfiguration reports absent credential fields. It is a signal, not a
// failure: callers log it and skip the operation.
func MissingConfiguration(fields ...string) *AppError {
	return &AppError{
		Type:       ConfigurationMissing,
		Message:    "push credentials are not configured",
		Detail:     "missing: " + strings.Join(fields, ", "),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// TokenGeneration wraps a signing-key or signing failure.
func TokenGeneration(cause error) *AppError {
	return &AppError{
		Type:       TokenGenerationError,
		Message:    "failed to generate provider token",
		Detail:     cause.Error(),
		HTTPStatus: http.StatusInternalServerError,
		Raw:        cause,
	}
}

// Dispatch reports a non-2xx answer from the push gateway. The raw response
// body is kept verbatim; interpreting the gateway reason is up to the caller.
func Dispatch(status int, body string) *AppError {
	return &AppError{
		Type:           DispatchError,
		Message:        fmt.Sprintf("push gateway rejected notification with status %d", status),
		Detail:         body,
		HTTPStatus:     http.StatusBadGateway,
		UpstreamStatus: status,
	}
}

// Transport reports a dispatch that never got a response from the gateway.
func Transport(cause error) *AppError {
	return &AppError{
		Type:       DispatchError,
		Message:    "push gateway request failed",
		Detail:     cause.Error(),
		HTTPStatus: http.StatusBadGateway,
		Raw:        cause,
	}
}

// Persistence wraps a device registration store failure.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Type:       PersistenceError,
		Message:    fmt.Sprintf("device registration %s failed", op),
		Detail:     cause.Error(),
		HTTPStatus: http.StatusInternalServerError,
		Raw:        cause,
	}
}

// Unimplemented is returned by push providers that exist only as placeholders.
func Unimplemented(provider string) *AppError {
	return &AppError{
		Type:       UnimplementedError,
		Message:    fmt.Sprintf("push provider %q is not implemented", provider),
		HTTPStatus: http.StatusNotImplemented,
	}
}

// RateLimited reports a caller that exceeded its request budget.
func RateLimited(retryAfter string) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    "too many requests",
		Detail:     "retry after " + retryAfter,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// UpstreamStatus returns the push gateway status carried by err, if any.
func UpstreamStatus(err error) (int, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
		return appErr.UpstreamStatus, true
	}
	return 0, false
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case AuthError:
		return http.StatusUnauthorized
	case ConfigurationMissing:
		return http.StatusServiceUnavailable
	case DispatchError:
		return http.StatusBadGateway
	case UnimplementedError:
		return http.StatusNotImplemented
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
