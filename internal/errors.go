package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	// ErrorTypeTransient marks failures of a downstream dependency (storage,
	// gateway) where redelivery is safe because nothing was committed. The
	// webhook dispatcher maps these to a retry-me response; everything else
	// is acknowledged.
	ErrorTypeTransient ErrorType = "TRANSIENT_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeMissingSignature ErrorCode = "MISSING_SIGNATURE"
	ErrCodeMissingSecret    ErrorCode = "MISSING_WEBHOOK_SECRET"
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"

	ErrCodeInvalidCorrelation ErrorCode = "INVALID_CORRELATION_ID"
	ErrCodeBookingNotFound    ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeSupplierNotFound   ErrorCode = "SUPPLIER_NOT_FOUND"
	ErrCodePaymentNotFound    ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeSettlementFailed   ErrorCode = "SETTLEMENT_FAILED"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewTransientError wraps a dependency failure that is safe to retry.
func NewTransientError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransient,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

var (
	ErrMissingSignature = NewUnauthorizedError("webhook signature header is missing", ErrCodeMissingSignature)
	ErrInvalidSignature = NewUnauthorizedError("webhook signature verification failed", ErrCodeInvalidSignature)
	// ErrMissingSecret is a deployment problem, not a caller error.
	ErrMissingSecret = NewInternalError("webhook secret is not configured", nil)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsTransient reports whether err should make the webhook boundary signal
// the gateway to redeliver rather than acknowledge.
func IsTransient(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeTransient
	}
	return false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
