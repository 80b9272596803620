// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// ErrNoNodes indicates a manager was constructed with an empty node list
var ErrNoNodes = errors.New("node pool is empty")

// ErrorCode identifies the terminal outcome of a retried operation
type ErrorCode string

// Terminal error codes surfaced by the retry manager
const (
	// CodeMaxAttempts indicates attempts were exhausted on retryable errors
	CodeMaxAttempts ErrorCode = "RETRY_MAX_ATTEMPTS"

	// CodeTimeout indicates the wall-clock duration budget was exhausted
	CodeTimeout ErrorCode = "RETRY_TIMEOUT"

	// CodeInsufficientNodes indicates too few eligible nodes remained
	CodeInsufficientNodes ErrorCode = "RETRY_INSUFFICIENT_NODES"

	// CodeNonRetryable indicates the last error was classified as permanent
	CodeNonRetryable ErrorCode = "RETRY_NON_RETRYABLE"
)

// RetryError is the single error type surfaced by the retry manager.
// It carries the terminal code, the operation name, the number of completed
// attempts and the last underlying error so upstream layers can render a
// meaningful message without inspecting node state.
type RetryError struct {
	// Code is the terminal outcome classification
	Code ErrorCode

	// Operation is the caller-supplied operation name
	Operation string

	// Attempts is the number of attempts completed before failing
	Attempts int

	// Cause is the last underlying error, may be nil
	Cause error

	message string
}

// Error implements the error interface
func (e *RetryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.message)
}

// Unwrap returns the underlying error
func (e *RetryError) Unwrap() error {
	return e.Cause
}

// NewMaxAttemptsError creates the attempts-exhausted terminal error
func NewMaxAttemptsError(operation string, attempts int, cause error) *RetryError {
	return &RetryError{
		Code:      CodeMaxAttempts,
		Operation: operation,
		Attempts:  attempts,
		Cause:     cause,
		message:   fmt.Sprintf("maximum retries exceeded for operation %q after %d attempts", operation, attempts),
	}
}

// NewTimeoutError creates the duration-budget-exhausted terminal error
func NewTimeoutError(operation string, attempts int, cause error) *RetryError {
	return &RetryError{
		Code:      CodeTimeout,
		Operation: operation,
		Attempts:  attempts,
		Cause:     cause,
		message:   fmt.Sprintf("maximum retry duration exceeded for operation %q after %d attempts", operation, attempts),
	}
}

// NewInsufficientNodesError creates the too-few-eligible-nodes terminal error
func NewInsufficientNodesError(operation string, eligible, required int) *RetryError {
	return &RetryError{
		Code:      CodeInsufficientNodes,
		Operation: operation,
		message:   fmt.Sprintf("insufficient healthy nodes for operation %q: %d eligible, %d required", operation, eligible, required),
	}
}

// NewNonRetryableError creates the permanent-failure terminal error
func NewNonRetryableError(operation string, attempts int, cause error) *RetryError {
	return &RetryError{
		Code:      CodeNonRetryable,
		Operation: operation,
		Attempts:  attempts,
		Cause:     cause,
		message:   fmt.Sprintf("non-retryable error for operation %q", operation),
	}
}

// CodeOf extracts the terminal code from an error chain, or "" if the chain
// contains no RetryError
func CodeOf(err error) ErrorCode {
	var retryErr *RetryError
	if errors.As(err, &retryErr) {
		return retryErr.Code
	}
	return ""
}

// HasCode checks whether an error chain carries the given terminal code
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
