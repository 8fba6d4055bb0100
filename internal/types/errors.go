package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Red Council errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_MIGRATION_FAILED  ErrorCode = "CONFIG_MIGRATION_FAILED"
)

// Storage error codes
const (
	STORAGE_OPEN_FAILED  ErrorCode = "STORAGE_OPEN_FAILED"
	STORAGE_READ_FAILED  ErrorCode = "STORAGE_READ_FAILED"
	STORAGE_WRITE_FAILED ErrorCode = "STORAGE_WRITE_FAILED"
	STORAGE_KEY_INVALID  ErrorCode = "STORAGE_KEY_INVALID"
)

// Template error codes
const (
	TEMPLATE_NOT_FOUND     ErrorCode = "TEMPLATE_NOT_FOUND"
	TEMPLATE_INVALID       ErrorCode = "TEMPLATE_INVALID"
	TEMPLATE_PARSE_FAILED  ErrorCode = "TEMPLATE_PARSE_FAILED"
	TEMPLATE_STORE_FAILED  ErrorCode = "TEMPLATE_STORE_FAILED"
)

// Campaign error codes
const (
	CAMPAIGN_INVALID_STATE  ErrorCode = "CAMPAIGN_INVALID_STATE"
	CAMPAIGN_NO_TEMPLATES   ErrorCode = "CAMPAIGN_NO_TEMPLATES"
	CAMPAIGN_SNAPSHOT_BAD   ErrorCode = "CAMPAIGN_SNAPSHOT_BAD"
	CAMPAIGN_NOT_FOUND      ErrorCode = "CAMPAIGN_NOT_FOUND"
)

// LLM provider error codes
const (
	LLM_AUTH_FAILED      ErrorCode = "LLM_AUTH_FAILED"
	LLM_REQUEST_FAILED   ErrorCode = "LLM_REQUEST_FAILED"
	LLM_RATE_LIMITED     ErrorCode = "LLM_RATE_LIMITED"
	LLM_UNKNOWN_PROVIDER ErrorCode = "LLM_UNKNOWN_PROVIDER"
)

// History error codes
const (
	HISTORY_QUERY_FAILED ErrorCode = "HISTORY_QUERY_FAILED"
	HISTORY_WRITE_FAILED ErrorCode = "HISTORY_WRITE_FAILED"
)

// CouncilError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type CouncilError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CouncilError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *CouncilError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *CouncilError) Is(target error) bool {
	var ce *CouncilError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// NewError creates a new CouncilError with the given code and message.
func NewError(code ErrorCode, message string) *CouncilError {
	return &CouncilError{
		Code:    code,
		Message: message,
	}
}

// WrapError creates a new CouncilError wrapping an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *CouncilError {
	return &CouncilError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithRetryable marks the error as retryable and returns it for chaining.
func (e *CouncilError) WithRetryable() *CouncilError {
	e.Retryable = true
	return e
}

// IsRetryable reports whether err carries a retryable hint.
func IsRetryable(err error) bool {
	var ce *CouncilError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// CodeOf extracts the error code from err, or empty string if err is not a CouncilError.
func CodeOf(err error) ErrorCode {
	var ce *CouncilError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
