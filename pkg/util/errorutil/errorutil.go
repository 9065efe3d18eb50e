package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the engine and the HTTP layer.
const (
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeNotFound                 = "NOT_FOUND"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeForbidden                = "FORBIDDEN"
	CodeConflict                 = "CONFLICT"
	CodeInternal                 = "INTERNAL_ERROR"
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeActionNotPermitted       = "ACTION_NOT_PERMITTED"
	CodeCancellationWindowClosed = "CANCELLATION_WINDOW_CLOSED"
	CodeMalformedAppointment     = "MALFORMED_APPOINTMENT"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInvalidTransition reports a lifecycle transition outside the transition table.
// cause carries the typed detail for callers using errors.As.
func NewInvalidTransition(current, attempted, trigger string, cause error) error {
	return &DomainError{
		Code:       CodeInvalidTransition,
		Message:    "invalid status transition",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"current":   current,
			"attempted": attempted,
			"trigger":   trigger,
		},
		Err: cause,
	}
}

// NewActionNotPermitted reports an action requested outside its eligibility window.
func NewActionNotPermitted(action, status string, cause error) error {
	return &DomainError{
		Code:       CodeActionNotPermitted,
		Message:    "action not permitted",
		HTTPStatus: http.StatusForbidden,
		Details: map[string]any{
			"action": action,
			"status": status,
		},
		Err: cause,
	}
}

// NewCancellationWindowClosed reports a cancellation requested too close to the scheduled time.
func NewCancellationWindowClosed(details map[string]any, cause error) error {
	return &DomainError{
		Code:       CodeCancellationWindowClosed,
		Message:    "cancellation window closed",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
		Err:        cause,
	}
}

// NewMalformedAppointment reports a record the timeline inference policy cannot repair.
func NewMalformedAppointment(message string, details map[string]any) error {
	return NewDomainError(CodeMalformedAppointment, message, http.StatusUnprocessableEntity, details)
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError is ToDomainError that keeps a nil error nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
