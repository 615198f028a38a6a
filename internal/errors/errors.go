package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for sandboxbox
const (
	ExitSuccess             = 0
	ExitGeneralError        = 1
	ExitValidation          = 2
	ExitBackendNotInstalled = 3
	ExitBackendUnreachable  = 4
	ExitConfigError         = 5
	ExitSignalBase          = 128
)

// Kind classifies a SandboxError.
type Kind string

const (
	KindGeneral             Kind = "general"
	KindValidation          Kind = "validation"
	KindBackendNotInstalled Kind = "backend-not-installed"
	KindBackendUnreachable  Kind = "backend-unreachable"
	KindGitSyncWarning      Kind = "git-sync-warning"
	KindExecutionFailure    Kind = "execution-failure"
	KindCleanupFailure      Kind = "cleanup-failure"
	KindConfig              Kind = "config"
	KindInterrupted         Kind = "interrupted"
)

// SandboxError is the base error type for sandboxbox
type SandboxError struct {
	Kind        Kind
	Code        int
	Step        string // failing step, e.g. "provision" or "backend start"
	Message     string
	Remediation string // manual command that fixes the problem, if any
	Stderr      string // captured stderr of the failing tool
	Cause       error
}

func (e *SandboxError) Error() string {
	var b strings.Builder
	if e.Step != "" {
		b.WriteString(e.Step)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.Remediation != "" {
		b.WriteString("\n  to fix manually, run: ")
		b.WriteString(e.Remediation)
	}
	return b.String()
}

func (e *SandboxError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *SandboxError) ExitCode() int {
	return e.Code
}

// Fatal reports whether the error should abort the current operation.
// Warnings and cleanup failures are informational.
func (e *SandboxError) Fatal() bool {
	return e.Kind != KindGitSyncWarning && e.Kind != KindCleanupFailure
}

// New creates a new SandboxError
func New(code int, message string) *SandboxError {
	return &SandboxError{
		Kind:    KindGeneral,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a SandboxError
func Wrap(code int, message string, cause error) *SandboxError {
	return &SandboxError{
		Kind:    KindGeneral,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError returns an error for bad or missing inputs
func ValidationError(message string) *SandboxError {
	return &SandboxError{Kind: KindValidation, Code: ExitValidation, Message: message}
}

// ValidationErrorf is ValidationError with formatting
func ValidationErrorf(format string, args ...any) *SandboxError {
	return ValidationError(fmt.Sprintf(format, args...))
}

// BackendNotInstalled returns an error for a missing backend binary
func BackendNotInstalled(binary, remediation string, cause error) *SandboxError {
	return &SandboxError{
		Kind:        KindBackendNotInstalled,
		Code:        ExitBackendNotInstalled,
		Step:        "backend check",
		Message:     fmt.Sprintf("%s is not installed", binary),
		Remediation: remediation,
		Cause:       cause,
	}
}

// BackendUnreachable returns an error for a backend that never became ready
func BackendUnreachable(step, remediation string, cause error) *SandboxError {
	return &SandboxError{
		Kind:        KindBackendUnreachable,
		Code:        ExitBackendUnreachable,
		Step:        step,
		Message:     "isolation backend is not reachable",
		Remediation: remediation,
		Cause:       cause,
	}
}

// GitSyncWarning returns a non-fatal git setup error
func GitSyncWarning(step string, cause error) *SandboxError {
	return &SandboxError{
		Kind:    KindGitSyncWarning,
		Code:    ExitGeneralError,
		Step:    step,
		Message: "git sync degraded",
		Cause:   cause,
	}
}

// ExecutionFailure returns an error for a nonzero inner exit code.
// The exit code is propagated verbatim.
func ExecutionFailure(exitCode int, stderr string) *SandboxError {
	code := exitCode
	if code <= 0 {
		code = ExitGeneralError
	}
	return &SandboxError{
		Kind:    KindExecutionFailure,
		Code:    code,
		Step:    "execute",
		Message: fmt.Sprintf("command exited with status %d", exitCode),
		Stderr:  stderr,
	}
}

// CleanupFailure returns an error describing a failed cleanup step
func CleanupFailure(step string, cause error) *SandboxError {
	return &SandboxError{
		Kind:    KindCleanupFailure,
		Code:    ExitGeneralError,
		Step:    step,
		Message: "cleanup failed",
		Cause:   cause,
	}
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *SandboxError {
	return &SandboxError{Kind: KindConfig, Code: ExitConfigError, Message: message, Cause: cause}
}

// Interrupted returns an error for a run stopped by a signal
func Interrupted(signal int) *SandboxError {
	return &SandboxError{
		Kind:    KindInterrupted,
		Code:    ExitSignalBase + signal,
		Message: fmt.Sprintf("interrupted by signal %d", signal),
	}
}

// StepError wraps cause as a fatal error of the given step
func StepError(step string, cause error) *SandboxError {
	return &SandboxError{Kind: KindGeneral, Code: ExitGeneralError, Step: step, Message: "failed", Cause: cause}
}

// IsKind reports whether err's chain contains a SandboxError of kind k
func IsKind(err error, k Kind) bool {
	var sbErr *SandboxError
	if errors.As(err, &sbErr) {
		return sbErr.Kind == k
	}
	return false
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var sbErr *SandboxError
	if errors.As(err, &sbErr) {
		return sbErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}
