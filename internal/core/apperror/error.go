// Package apperror provides structured errors rendered as {code,message,details}.
// Every business rule violation in stockledger surfaces as an AppError.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic codes. Stock and period rules have their own codes in stock.go.
const (
	CodeInternal               = "INTERNAL_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// AppError carries a machine-readable code and the HTTP status it maps to.
// Err is kept for logs and never rendered.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail entry and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 4)
	}
	e.Details[key] = value
	return e
}

// withDetails sets kv given as key, value, key, value...
func (e *AppError) withDetails(kv ...any) *AppError {
	for i := 0; i+1 < len(kv); i += 2 {
		e.WithDetail(kv[i].(string), kv[i+1])
	}
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func NewNotFound(entity string, id any) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, entity+" not found").
		withDetails("entity", entity, "id", id)
}

func NewConflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message)
}

// NewDuplicate reports a unique constraint hit on field.
func NewDuplicate(entity, field, value string) *AppError {
	return newError(http.StatusConflict, CodeDuplicate, fmt.Sprintf("%s with this %s already exists", entity, field)).
		withDetails("entity", entity, "field", field, "value", value)
}

// NewConcurrentModification reports a lost optimistic-lock race.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(http.StatusConflict, CodeConcurrentModification, "record was modified concurrently, reload and retry").
		withDetails("entity", entity, "id", id)
}

// NewBusinessRule is the fallback for rule violations without a dedicated code.
func NewBusinessRule(code, message string) *AppError {
	return newError(http.StatusUnprocessableEntity, code, message)
}

// NewInternal hides err from the client; it is still logged.
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, "internal server error").WithCause(err)
}

// NewIdempotencyConflict is returned while the first request with key is in flight.
func NewIdempotencyConflict(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "operation already in progress or completed").
		withDetails("idempotency_key", key)
}

// NewIdempotencyMismatch is returned when key is replayed for a different
// user, operation or body.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "idempotency key reused for a different request").
		withDetails("idempotency_key", key)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
