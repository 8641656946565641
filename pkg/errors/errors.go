// Package errors carries typed application errors across layers. Every
// AppError knows the HTTP status it maps to so transports never guess.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an AppError
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeTimeout      ErrorType = "TIMEOUT"
	ErrorTypeUnavailable  ErrorType = "UNAVAILABLE"
	ErrorTypeDatabase     ErrorType = "DATABASE"
	ErrorTypeExternal     ErrorType = "EXTERNAL"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeInternal:     http.StatusInternalServerError,
	ErrorTypeTimeout:      http.StatusRequestTimeout,
	ErrorTypeUnavailable:  http.StatusServiceUnavailable,
	ErrorTypeDatabase:     http.StatusInternalServerError,
	ErrorTypeExternal:     http.StatusBadGateway,
}

// AppError is the error value shared by the domain, application and transport layers
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	msg := string(e.Type) + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCode attaches a machine readable code, such as an AWS error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// build backs every New*Error helper; the recorded stack starts at the
// helper's caller.
func build(kind ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:       kind,
		Message:    message,
		Cause:      cause,
		HTTPStatus: statusByType[kind],
		StackTrace: callers(4),
	}
}

func callers(skip int) string {
	pcs := make([]uintptr, 32)
	pcs = pcs[:runtime.Callers(skip, pcs)]

	var b strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("%s:%d %s\n", f.File, f.Line, f.Function))
		if !more {
			return b.String()
		}
	}
}

// NewValidationError reports a caller contract violation: negative depth,
// negative limit, empty vault id and the like.
func NewValidationError(message string) *AppError {
	return build(ErrorTypeValidation, message, nil)
}

func NewValidationErrorf(format string, args ...interface{}) *AppError {
	return build(ErrorTypeValidation, fmt.Sprintf(format, args...), nil)
}

// NewNotFoundError names the missing resource, e.g. "node"
func NewNotFoundError(resource string) *AppError {
	return build(ErrorTypeNotFound, resource+" not found", nil)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return build(ErrorTypeUnauthorized, message, nil)
}

// NewForbiddenError reports an authenticated caller without access
func NewForbiddenError(message string) *AppError {
	return build(ErrorTypeForbidden, message, nil)
}

func NewInternalError(message string) *AppError {
	return build(ErrorTypeInternal, message, nil)
}

func NewTimeoutError(operation string) *AppError {
	return build(ErrorTypeTimeout, fmt.Sprintf("%s timed out", operation), nil)
}

func NewUnavailableError(service string) *AppError {
	return build(ErrorTypeUnavailable, fmt.Sprintf("%s is unavailable", service), nil)
}

// NewMetadataUnavailableError reports that a vault's metadata could not be
// read. The graph service turns these into an empty graph.
func NewMetadataUnavailableError(vaultID string, err error) *AppError {
	return build(ErrorTypeUnavailable, fmt.Sprintf("metadata for vault %q is unavailable", vaultID), err)
}

func NewDatabaseError(operation string, err error) *AppError {
	return build(ErrorTypeDatabase, fmt.Sprintf("%s failed", operation), err)
}

func NewExternalError(service string, err error) *AppError {
	return build(ErrorTypeExternal, fmt.Sprintf("call to %s failed", service), err)
}

// GetAppError returns the first AppError in err's chain, or nil
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool { return GetAppError(err) != nil }

func IsType(err error, kind ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == kind
}

func IsNotFound(err error) bool    { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool  { return IsType(err, ErrorTypeValidation) }
func IsUnavailable(err error) bool { return IsType(err, ErrorTypeUnavailable) }
func IsTimeout(err error) bool     { return IsType(err, ErrorTypeTimeout) }

// HTTPStatusOf maps err to a response status. Anything untyped is a 500.
func HTTPStatusOf(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Wrap prefixes an AppError's message in place, or turns any other error
// into an internal AppError caused by it.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
