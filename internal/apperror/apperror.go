// Package apperror classifies every error the system can produce into the
// taxonomy from the error-handling design: ConfigFatal, AuthFailed,
// NotAuthorized, Conflict, Validation, ProviderTransient, QualityBlocked,
// FailFast, Internal. The job queue dispatches retries on this
// classification; HTTP handlers map it to a status code and envelope.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one of the taxonomy's error classes.
type Code string

const (
	ConfigFatal       Code = "config_fatal"
	AuthFailed        Code = "auth_failed"
	NotAuthorized     Code = "not_authorized"
	NotFound          Code = "not_found"
	Conflict          Code = "conflict"
	Validation        Code = "validation"
	ProviderTransient Code = "provider_transient"
	QualityBlocked    Code = "quality_blocked"
	FailFast          Code = "fail_fast"
	Internal          Code = "internal"
)

// Error wraps an underlying cause with a taxonomy Code and an optional
// machine-readable detail used for field-level validation reporting.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a classified Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a classified Error wrapping cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithDetails attaches machine-readable detail (e.g. field validation
// errors) to the classified error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// As extracts a classified *Error from err, if present.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf returns the classified Code of err, defaulting to Internal when err
// carries no classification.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return Internal
}

// Retryable reports whether the classification should be retried by the job
// queue rather than terminally failed.
func Retryable(err error) bool {
	return CodeOf(err) == ProviderTransient
}

// HTTPStatus maps a Code to the status code the error-handling design
// assigns it in the HTTP surface.
func HTTPStatus(code Code) int {
	switch code {
	case AuthFailed:
		return http.StatusUnauthorized
	case NotAuthorized:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusUnprocessableEntity
	case ProviderTransient:
		return http.StatusBadGateway
	case FailFast:
		return http.StatusOK // journaled, state-machine reset, not an HTTP error
	case QualityBlocked:
		return http.StatusOK // stored as NOT_EXECUTABLE, not an HTTP error
	case ConfigFatal, Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
