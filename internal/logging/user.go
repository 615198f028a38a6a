package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// User-facing output functions with status prefixes.
// These are separate from the structured debug logging. All of them write to
// stderr by default so a sandboxed command owns stdout.

var (
	userOut io.Writer = os.Stderr
	userErr io.Writer = os.Stderr
	styled            = isTerminal(os.Stderr)
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// SetUserOutput redirects user messages. Styling is enabled only when errOut
// is a terminal.
func SetUserOutput(out, errOut io.Writer) {
	userOut = out
	userErr = errOut
	styled = isTerminal(errOut)
}

// UserInfo prints an info message.
func UserInfo(format string, args ...interface{}) {
	emit(userOut, infoStyle, "ℹ", format, args...)
}

// UserSuccess prints a success message.
func UserSuccess(format string, args ...interface{}) {
	emit(userOut, successStyle, "✓", format, args...)
}

// UserWarning prints a warning message.
func UserWarning(format string, args ...interface{}) {
	emit(userErr, warnStyle, "⚠", format, args...)
}

// UserError prints an error message.
func UserError(format string, args ...interface{}) {
	emit(userErr, errorStyle, "✗", format, args...)
}

func emit(w io.Writer, style lipgloss.Style, prefix, format string, args ...interface{}) {
	if styled {
		prefix = style.Render(prefix)
	}
	fmt.Fprintf(w, prefix+" "+format+"\n", args...)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
