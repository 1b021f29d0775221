package exitcode

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
)

// Exit codes following BSD sysexits.h conventions
// See: https://man.freebsd.org/cgi/man.cgi?query=sysexits
const (
	// Success - every file converted and replayed
	Success = 0

	// PartialFailure - the run finished but at least one file failed
	PartialFailure = 1

	// UsageError - command line usage error
	UsageError = 2

	// DataError - input data was incorrect
	DataError = 65

	// NoInput - input file or directory did not exist or was not readable
	NoInput = 66

	// Unavailable - service unavailable (database unreachable, converter missing)
	Unavailable = 69

	// Software - internal software error
	Software = 70

	// NoPerm - permission denied
	NoPerm = 77

	// Config - configuration error
	Config = 78

	// Cancelled - operation cancelled by user (Ctrl+C)
	Cancelled = 130
)

// ExitWithCode returns the process exit code for err. Structured errors are
// mapped by code and category; anything else falls back to message patterns.
func ExitWithCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) {
		return Cancelled
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInputNotFound:
		return NoInput
	case apperrors.ErrCodeToolMissing, apperrors.ErrCodeConnFailed:
		return Unavailable
	}

	switch apperrors.GetCategory(err) {
	case apperrors.CategoryConfig:
		return Config
	case apperrors.CategoryAuth:
		return NoPerm
	case apperrors.CategoryNetwork:
		return Unavailable
	case apperrors.CategoryData:
		return DataError
	case apperrors.CategoryInternal:
		return Software
	}

	errMsg := strings.ToLower(err.Error())

	if containsAny(errMsg, "permission denied", "access denied") {
		return NoPerm
	}
	if containsAny(errMsg, "connection refused", "could not connect", "no such host", "unknown host") {
		return Unavailable
	}
	if containsAny(errMsg, "no such file", "file not found", "does not exist") {
		return NoInput
	}
	if containsAny(errMsg, "context canceled", "operation canceled", "cancelled") {
		return Cancelled
	}
	if containsAny(errMsg, "invalid config", "configuration error", "required flag") {
		return Config
	}

	return PartialFailure
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
