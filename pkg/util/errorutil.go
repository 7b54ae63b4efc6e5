package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// DomainError standardizes application errors across workers and the HTTP surface.
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
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewNotFound reports an absent ticket, window or record. Expected condition,
// returned as a value to the calling worker logic.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidTransition reports a status edge outside the lifecycle graph.
func NewInvalidTransition(from, to string) error {
	return &DomainError{
		Code:       "INVALID_TRANSITION",
		Message:    fmt.Sprintf("transition %s -> %s is not allowed", from, to),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"from": from, "to": to},
	}
}

// NewSerializationError reports a malformed stored record. Callers log it and
// treat the record as absent rather than crashing.
func NewSerializationError(key string, err error) error {
	return &DomainError{
		Code:       "SERIALIZATION_ERROR",
		Message:    fmt.Sprintf("malformed record at %s", key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
		Err:        err,
	}
}

// NewTransportError wraps a bus/store connectivity failure. These are retried
// locally and never surfaced to gateway callers.
func NewTransportError(err error) error {
	return &DomainError{
		Code:       "TRANSPORT_ERROR",
		Message:    "transport unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsNotFound reports whether err is (or wraps) a NOT_FOUND domain error.
func IsNotFound(err error) bool {
	return hasCode(err, "NOT_FOUND")
}

// IsInvalidTransition reports whether err is an INVALID_TRANSITION domain error.
func IsInvalidTransition(err error) bool {
	return hasCode(err, "INVALID_TRANSITION")
}

// IsSerialization reports whether err is a SERIALIZATION_ERROR domain error.
func IsSerialization(err error) bool {
	return hasCode(err, "SERIALIZATION_ERROR")
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
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
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, redis.Nil) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
