package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Business rule errors
	ErrCodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientShares ErrorCode = "INSUFFICIENT_SHARES"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"

	// Data errors
	ErrCodeMissingMarketData ErrorCode = "MISSING_MARKET_DATA"

	// System errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// FolioError represents a standardized error
type FolioError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e *FolioError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New creates a new FolioError
func New(code ErrorCode, message string) *FolioError {
	return &FolioError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
		Details:    make(map[string]interface{}),
	}
}

// AddDetail adds a detail to the error
func (e *FolioError) AddDetail(key string, value interface{}) *FolioError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is lets callers match FolioErrors by code through errors.Is.
func (e *FolioError) Is(target error) bool {
	var fe *FolioError
	if !errors.As(target, &fe) {
		return false
	}
	return e.Code == fe.Code
}

// AsFolioError extracts a FolioError from an error chain, if present.
func AsFolioError(err error) (*FolioError, bool) {
	var fe *FolioError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	fe, ok := AsFolioError(err)
	return ok && fe.Code == code
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInsufficientFunds, ErrCodeInsufficientShares:
		return http.StatusUnprocessableEntity
	case ErrCodeMissingMarketData:
		return http.StatusUnprocessableEntity
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func ValidationError(message string) *FolioError {
	return New(ErrCodeValidation, message)
}

func NotFound(resource string) *FolioError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InsufficientFunds(message string) *FolioError {
	return New(ErrCodeInsufficientFunds, message)
}

func InsufficientShares(message string) *FolioError {
	return New(ErrCodeInsufficientShares, message)
}

// MissingMarketData identifies the first ticker/date gap that stopped a
// computation.
func MissingMarketData(ticker, date string) *FolioError {
	return New(ErrCodeMissingMarketData,
		fmt.Sprintf("no close price for %s on %s", ticker, date)).
		AddDetail("ticker", ticker).
		AddDetail("date", date)
}

func Forbidden(message string) *FolioError {
	return New(ErrCodeForbidden, message)
}

func Internal(message string) *FolioError {
	return New(ErrCodeInternal, message)
}

func ServiceUnavailable(service string) *FolioError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("%s service unavailable", service))
}
