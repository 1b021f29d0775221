// Package errors provides structured error types for ibdreplay
// with error codes, categories, and remediation guidance
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error codes for ibdreplay
// Format: REPLAY-<CATEGORY><NUMBER>
// Categories: C=Config, E=Environment, D=Data, B=Bug, N=Network, A=Auth
const (
	// Configuration errors (user fix)
	ErrCodeInvalidConfig ErrorCode = "REPLAY-C001"
	ErrCodeInputNotFound ErrorCode = "REPLAY-C002"

	// Authentication errors (credential fix)
	ErrCodeAccessDenied ErrorCode = "REPLAY-A001"

	// Environment errors (infrastructure fix)
	ErrCodeToolMissing      ErrorCode = "REPLAY-E004"
	ErrCodeConversionFailed ErrorCode = "REPLAY-E010"

	// Data errors (investigate)
	ErrCodeDecodeFailed    ErrorCode = "REPLAY-D001"
	ErrCodeStatementFailed ErrorCode = "REPLAY-D002"

	// Network errors
	ErrCodeConnFailed ErrorCode = "REPLAY-N001"

	// Internal errors (report to maintainers)
	ErrCodeInternal ErrorCode = "REPLAY-B001"
)

// Category represents error categories
type Category string

const (
	CategoryConfig      Category = "configuration"
	CategoryAuth        Category = "authentication"
	CategoryEnvironment Category = "environment"
	CategoryData        Category = "data"
	CategoryNetwork     Category = "network"
	CategoryInternal    Category = "internal"
)

// ReplayError is a structured error with code, category, and remediation
type ReplayError struct {
	Code        ErrorCode
	Category    Category
	Message     string
	Details     string
	Remediation string
	Cause       error
}

// Error implements error interface
func (e *ReplayError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += fmt.Sprintf("\n\nDetails:\n  %s", e.Details)
	}
	if e.Remediation != "" {
		msg += fmt.Sprintf("\n\nTo fix:\n  %s", e.Remediation)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ReplayError) Unwrap() error {
	return e.Cause
}

// Is matches on error code, so errors.Is(err, &ReplayError{Code: X}) works
func (e *ReplayError) Is(target error) bool {
	if t, ok := target.(*ReplayError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewConfigError creates a configuration error
func NewConfigError(code ErrorCode, message string, remediation string) *ReplayError {
	return &ReplayError{
		Code:        code,
		Category:    CategoryConfig,
		Message:     message,
		Remediation: remediation,
	}
}

// NewEnvError creates an environment error
func NewEnvError(code ErrorCode, message string, remediation string) *ReplayError {
	return &ReplayError{
		Code:        code,
		Category:    CategoryEnvironment,
		Message:     message,
		Remediation: remediation,
	}
}

// NewDataError creates a data error
func NewDataError(code ErrorCode, message string, remediation string) *ReplayError {
	return &ReplayError{
		Code:        code,
		Category:    CategoryData,
		Message:     message,
		Remediation: remediation,
	}
}

// NewInternalError creates an internal error (bugs)
func NewInternalError(code ErrorCode, message string, cause error) *ReplayError {
	return &ReplayError{
		Code:        code,
		Category:    CategoryInternal,
		Message:     message,
		Cause:       cause,
		Remediation: "This appears to be a bug. Please report it together with the --debug output.",
	}
}

// WithDetails adds details to an error
func (e *ReplayError) WithDetails(details string) *ReplayError {
	e.Details = details
	return e
}

// WithCause adds an underlying cause
func (e *ReplayError) WithCause(cause error) *ReplayError {
	e.Cause = cause
	return e
}

// InvalidConfig creates a configuration validation error for one setting
func InvalidConfig(setting string, reason string) *ReplayError {
	return NewConfigError(ErrCodeInvalidConfig,
		fmt.Sprintf("Invalid configuration: %s", setting),
		"Check the command line flags, MYSQL_*/REPLAY_* environment variables and .ibdreplay.toml",
	).WithDetails(reason)
}

// InputNotFound creates an error for a missing input directory or script
func InputNotFound(path string, cause error) *ReplayError {
	return &ReplayError{
		Code:        ErrCodeInputNotFound,
		Category:    CategoryConfig,
		Message:     fmt.Sprintf("Input not found: %s", path),
		Remediation: "Pass an existing directory with --input (or an existing file to exec/split).",
		Cause:       cause,
	}
}

// ConnectionFailed creates a connection failure error with detailed help
func ConnectionFailed(host string, port int, cause error) *ReplayError {
	return &ReplayError{
		Code:     ErrCodeConnFailed,
		Category: CategoryNetwork,
		Message:  "Failed to connect to MySQL",
		Details:  fmt.Sprintf("Host: %s:%d\nError: %v", host, port, cause),
		Remediation: fmt.Sprintf(`This usually means:
  1. MySQL is not running on %s
  2. MySQL is not accepting connections on port %d

To fix:
  1. Test connection manually:
     mysql -h %s -P %d -u <user> -p

Run with --debug for detailed connection logs.`, host, port, host, port),
		Cause: cause,
	}
}

// AccessDenied creates an authentication error for rejected credentials
func AccessDenied(user string, cause error) *ReplayError {
	return &ReplayError{
		Code:        ErrCodeAccessDenied,
		Category:    CategoryAuth,
		Message:     fmt.Sprintf("Access denied for user %q", user),
		Remediation: "Check --user/--password or MYSQL_USER/MYSQL_PWD.",
		Cause:       cause,
	}
}

// ToolMissing creates a missing converter error
func ToolMissing(tool string, purpose string) *ReplayError {
	return &ReplayError{
		Code:     ErrCodeToolMissing,
		Category: CategoryEnvironment,
		Message:  fmt.Sprintf("Required tool not found: %s", tool),
		Details:  fmt.Sprintf("Purpose: %s", purpose),
		Remediation: fmt.Sprintf(`To fix:
  1. Make sure %s is installed and on PATH
  2. Or point --converter (IBD_CONVERTER) at the binary`, tool),
	}
}

// ConversionFailed creates an error for a converter run that exited non-zero
func ConversionFailed(input string, stderr string, cause error) *ReplayError {
	return &ReplayError{
		Code:     ErrCodeConversionFailed,
		Category: CategoryEnvironment,
		Message:  fmt.Sprintf("Conversion failed: %s", input),
		Details:  stderr,
		Cause:    cause,
	}
}

// DecodeFailed creates an error for a script that could not be decoded
func DecodeFailed(path string, encoding string, cause error) *ReplayError {
	return &ReplayError{
		Code:     ErrCodeDecodeFailed,
		Category: CategoryData,
		Message:  fmt.Sprintf("Cannot decode %s as %s", path, encoding),
		Cause:    cause,
	}
}

// IsRetryable returns true if the error is transient and can be retried
func IsRetryable(err error) bool {
	var replayErr *ReplayError
	if errors.As(err, &replayErr) {
		return replayErr.Code == ErrCodeConnFailed
	}
	return false
}

// GetCategory returns the error category if available
func GetCategory(err error) Category {
	var replayErr *ReplayError
	if errors.As(err, &replayErr) {
		return replayErr.Category
	}
	return ""
}

// GetCode returns the error code if available
func GetCode(err error) ErrorCode {
	var replayErr *ReplayError
	if errors.As(err, &replayErr) {
		return replayErr.Code
	}
	return ""
}
