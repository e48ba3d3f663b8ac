package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ValidationFailed reports that a node cannot run because a required input
// is missing or empty.
func ValidationFailed(nodeID, input, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeValidationFailed,
		Message:    fmt.Sprintf("node %s: %s", nodeID, reason),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID, "input": input},
	}
}

// ExternalCall wraps a failure of a generation backend.
func ExternalCall(backend string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeExternalCall,
		Message:    fmt.Sprintf("%s call failed", backend),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Details:    map[string]any{"backend": backend},
		Cause:      cause,
	}
}

// MalformedResponse reports a backend payload that is missing the expected field.
func MalformedResponse(backend, field string) *AppError {
	return &AppError{
		Code:       ErrCodeExternalCall,
		Message:    fmt.Sprintf("%s returned a response without %s", backend, field),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"backend": backend, "field": field},
	}
}

// RunTimeout reports that the scheduler stopped waiting for a node.
func RunTimeout(nodeID string, after time.Duration) *AppError {
	return &AppError{
		Code:       ErrCodeTimeout,
		Message:    fmt.Sprintf("node %s did not complete within %s", nodeID, after),
		HTTPStatus: http.StatusGatewayTimeout,
		Retryable:  true,
		Details:    map[string]any{"node_id": nodeID, "timeout": after.String()},
	}
}

// NodeBusy reports that the execution guard refused to start a node.
// reason is "busy" or "throttled".
func NodeBusy(nodeID, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeNodeBusy,
		Message:    fmt.Sprintf("node %s not started: %s", nodeID, reason),
		HTTPStatus: http.StatusConflict,
		Retryable:  true,
		Details:    map[string]any{"node_id": nodeID, "reason": reason},
	}
}

// InvalidEdge reports a connection rejected by the edge rules.
func InvalidEdge(source, target, handle, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidEdge,
		Message:    fmt.Sprintf("cannot connect %s to %s.%s: %s", source, target, handle, reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"source": source, "target": target, "target_handle": handle},
	}
}
