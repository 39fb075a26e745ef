package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrPermission    ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Alias errors
	ErrAliasUnknown ErrorCode = "ALIAS_UNKNOWN"
	ErrAliasInvalid ErrorCode = "ALIAS_INVALID"

	// Reconciliation errors
	ErrConflict          ErrorCode = "CONFLICT"
	ErrInsecureSource    ErrorCode = "INSECURE_SOURCE"
	ErrInconsistentState ErrorCode = "INCONSISTENT_STATE"
	ErrRemoval           ErrorCode = "REMOVAL"

	// Store errors
	ErrStorage ErrorCode = "STORAGE"

	// Privilege boundary errors
	ErrInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Package and service manager errors
	ErrManagerUnknown ErrorCode = "MANAGER_UNKNOWN"
	ErrCommandFailed  ErrorCode = "COMMAND_FAILED"
)

// DeclarixError represents a structured error with code and details
type DeclarixError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DeclarixError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeclarixError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DeclarixError) Is(target error) bool {
	var targetErr *DeclarixError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DeclarixError with the given code and message
func New(code ErrorCode, message string) *DeclarixError {
	return &DeclarixError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DeclarixError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DeclarixError {
	return &DeclarixError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DeclarixError
func Wrap(err error, code ErrorCode, message string) *DeclarixError {
	if err == nil {
		return nil
	}
	return &DeclarixError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DeclarixError {
	if err == nil {
		return nil
	}
	return &DeclarixError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DeclarixError) WithDetail(key string, value interface{}) *DeclarixError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var declErr *DeclarixError
	if errors.As(err, &declErr) {
		return declErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DeclarixError
func GetErrorCode(err error) ErrorCode {
	var declErr *DeclarixError
	if errors.As(err, &declErr) {
		return declErr.Code
	}
	return ErrUnknown
}

// IsFatal reports whether an error must terminate the whole run.
// Only store and configuration failures qualify; everything else is
// reported per entity and the run continues.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrStorage, ErrConfigLoad, ErrConfigParse, ErrConfigValid, ErrAliasUnknown, ErrAliasInvalid, ErrManagerUnknown:
		return true
	default:
		return false
	}
}
