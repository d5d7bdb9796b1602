package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	cerr "github.com/barun-bash/vbport/internal/errors"
)

// ANSI reset code, shared across the package.
const reset = "\033[0m"

// ColorEnabled controls whether ANSI color codes are emitted.
// It defaults to true if stdout is a terminal and NO_COLOR is not set.
var ColorEnabled = initColorEnabled()

func initColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Success formats a message with a check prefix.
func Success(msg string) string {
	return Colorize(RoleSuccess, "✓ "+msg)
}

// Error formats a message with a cross prefix.
func Error(msg string) string {
	return Colorize(RoleError, "✗ "+msg)
}

// Warn formats a message with a warning prefix.
func Warn(msg string) string {
	return Colorize(RoleWarn, "⚠ "+msg)
}

// Info formats a message with the theme's info color (no prefix).
func Info(msg string) string {
	return Colorize(RoleInfo, msg)
}

// Diagnostic writes one compiler diagnostic, colored by severity, and its
// suggestion on the following line.
func Diagnostic(w io.Writer, e *cerr.CompilerError) {
	switch e.Severity {
	case cerr.SeverityWarning:
		fmt.Fprintln(w, Warn(e.Format()))
	case cerr.SeverityHint:
		fmt.Fprintln(w, Muted("· "+e.Format()))
	default:
		fmt.Fprintln(w, Error(e.Format()))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(w, "  suggestion: %s\n", e.Suggestion)
	}
}
