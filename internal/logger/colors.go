package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// CLI output helpers. They print to stdout/stderr directly and bypass logrus,
// which is what the summary and dry-run commands want.

// Success prints a success message with green checkmark
func Success(format string, args ...interface{}) {
	_, _ = SuccessColor.Fprint(os.Stdout, "✓ ")
	fmt.Println(fmt.Sprintf(format, args...))
}

// Error prints an error message with red X to stderr
func Error(format string, args ...interface{}) {
	_, _ = ErrorColor.Fprint(os.Stderr, "✗ ")
	fmt.Fprintln(os.Stderr, fmt.Sprintf(format, args...))
}

// StatusLine writes an indented key-value line to w
func StatusLine(w io.Writer, key, value string) {
	_, _ = DimColor.Fprintf(w, "  %s: ", key)
	fmt.Fprintln(w, value)
}

// Green returns green text
func Green(text string) string {
	return SuccessColor.Sprint(text)
}

// Red returns red text
func Red(text string) string {
	return ErrorColor.Sprint(text)
}

// DisableColors disables all color output (for non-TTY or --no-color flag)
func DisableColors() {
	color.NoColor = true
}
