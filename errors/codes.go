package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Input errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Scheduling errors
const (
	// ErrCodeValidationFailed means a node's required inputs were not usable.
	// No external call was made.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeExternalCall means a generation backend failed or returned a
	// malformed payload.
	ErrCodeExternalCall ErrorCode = "EXTERNAL_CALL_FAILED"
	// ErrCodeNodeBusy means the execution guard refused to start a node.
	ErrCodeNodeBusy ErrorCode = "NODE_BUSY"
	// ErrCodeInvalidEdge means a connection was rejected by the edge rules.
	ErrCodeInvalidEdge ErrorCode = "INVALID_EDGE"
)

// Internal errors
const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalCall:       true,
	ErrCodeNodeBusy:           true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
