package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/flowgen/errors"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	// ErrCodeDecode means a 2xx response body was not the expected JSON.
	ErrCodeDecode
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is a classified HTTP client error.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError creates a client-side validation error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewDecodeError reports a response body that could not be decoded.
func NewDecodeError(status int, msg string, body []byte) *Error {
	return &Error{StatusCode: status, Code: ErrCodeDecode, Message: msg, Body: body}
}

// ClassifyStatusCode converts a status code into a typed error, nil for 2xx.
func ClassifyStatusCode(status int, body []byte) *Error {
	e := &Error{StatusCode: status, Message: fmt.Sprintf("HTTP %d", status), Body: body}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	case status >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// IsRetryable reports whether err is a retryable client error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// ToAppError maps a client error onto the shared error type. The resulting
// AppError keeps err as its cause and inherits its retryability.
func ToAppError(backend string, err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	appErr := apperrors.ExternalCall(backend, err)
	var e *Error
	if errors.As(err, &e) {
		appErr.Retryable = e.Retryable
		if e.StatusCode > 0 {
			appErr.WithDetail("status", e.StatusCode)
		}
		if e.Code == ErrCodeTimeout {
			appErr.Code = apperrors.ErrCodeTimeout
		}
	}
	return appErr
}
