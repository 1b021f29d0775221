package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
)

func TestExitCodeConstants(t *testing.T) {
	// Verify exit code constants match BSD sysexits.h values
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"PartialFailure", PartialFailure, 1},
		{"UsageError", UsageError, 2},
		{"DataError", DataError, 65},
		{"NoInput", NoInput, 66},
		{"Unavailable", Unavailable, 69},
		{"Software", Software, 70},
		{"NoPerm", NoPerm, 77},
		{"Config", Config, 78},
		{"Cancelled", Cancelled, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestExitWithCode_NilError(t *testing.T) {
	if code := ExitWithCode(nil); code != Success {
		t.Errorf("ExitWithCode(nil) = %d, want %d", code, Success)
	}
}

func TestExitWithCode_Structured(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid config", apperrors.InvalidConfig("port", "0"), Config},
		{"input missing", apperrors.InputNotFound("/nope", nil), NoInput},
		{"converter missing", apperrors.ToolMissing("ibd_to_sql", "convert"), Unavailable},
		{"connection", apperrors.ConnectionFailed("h", 3306, errors.New("x")), Unavailable},
		{"access denied", apperrors.AccessDenied("root", nil), NoPerm},
		{"decode", apperrors.DecodeFailed("a.sql", "gbk", nil), DataError},
		{"internal", apperrors.NewInternalError(apperrors.ErrCodeInternal, "bug", nil), Software},
		{"wrapped", fmt.Errorf("run: %w", apperrors.InputNotFound("/nope", nil)), NoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitWithCode(tt.err); got != tt.want {
				t.Errorf("ExitWithCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExitWithCode_Patterns(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"Error 1045: Access denied for user 'root'", NoPerm},
		{"dial tcp 127.0.0.1:3306: connect: connection refused", Unavailable},
		{"open /x: no such file or directory", NoInput},
		{"operation canceled", Cancelled},
		{"required flag(s) \"input\" not set", Config},
		{"something else entirely", PartialFailure},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := ExitWithCode(errors.New(tt.msg)); got != tt.want {
				t.Errorf("ExitWithCode(%q) = %d, want %d", tt.msg, got, tt.want)
			}
		})
	}
}

func TestExitWithCode_ContextCanceled(t *testing.T) {
	err := fmt.Errorf("replay stopped: %w", context.Canceled)
	if got := ExitWithCode(err); got != Cancelled {
		t.Errorf("ExitWithCode() = %d, want %d", got, Cancelled)
	}
}
