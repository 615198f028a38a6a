package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSandboxError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *SandboxError
		wantMsg string
	}{
		{
			name:    "without cause",
			err:     New(ExitGeneralError, "something went wrong"),
			wantMsg: "something went wrong",
		},
		{
			name:    "with cause",
			err:     Wrap(ExitGeneralError, "operation failed", fmt.Errorf("underlying error")),
			wantMsg: "operation failed: underlying error",
		},
		{
			name:    "with step",
			err:     StepError("clone", fmt.Errorf("exit status 128")),
			wantMsg: "clone: failed: exit status 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSandboxError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ExitGeneralError, "wrapped", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := New(ExitGeneralError, "no cause")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *SandboxError
		kind     Kind
		code     int
		fatal    bool
		contains string
	}{
		{"validation", ValidationError("path missing"), KindValidation, ExitValidation, true, "path missing"},
		{"validationf", ValidationErrorf("bad %s", "dir"), KindValidation, ExitValidation, true, "bad dir"},
		{"not installed", BackendNotInstalled("podman", "brew install podman", nil), KindBackendNotInstalled, ExitBackendNotInstalled, true, "podman is not installed"},
		{"unreachable", BackendUnreachable("backend start", "podman machine start", nil), KindBackendUnreachable, ExitBackendUnreachable, true, "podman machine start"},
		{"git warning", GitSyncWarning("identity copy", fmt.Errorf("boom")), KindGitSyncWarning, ExitGeneralError, false, "identity copy"},
		{"cleanup", CleanupFailure("remove root", fmt.Errorf("busy")), KindCleanupFailure, ExitGeneralError, false, "busy"},
		{"config", ConfigError("bad config", nil), KindConfig, ExitConfigError, true, "bad config"},
		{"interrupted", Interrupted(2), KindInterrupted, 130, true, "signal 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.code)
			}
			if tt.err.Fatal() != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", tt.err.Fatal(), tt.fatal)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestExecutionFailure_PropagatesExitCode(t *testing.T) {
	err := ExecutionFailure(42, "oops")
	if err.ExitCode() != 42 {
		t.Errorf("ExitCode() = %d, want 42", err.ExitCode())
	}
	if err.Stderr != "oops" {
		t.Errorf("Stderr = %q, want %q", err.Stderr, "oops")
	}

	// A negative code (killed by signal) still fails the process.
	if got := ExecutionFailure(-1, "").ExitCode(); got != ExitGeneralError {
		t.Errorf("ExitCode() = %d, want %d", got, ExitGeneralError)
	}
}

func TestBackendUnreachable_IncludesRemediation(t *testing.T) {
	err := BackendUnreachable("backend verify", "podman machine init && podman machine start", errors.New("timeout"))
	msg := err.Error()
	for _, want := range []string{"backend verify", "timeout", "podman machine init", "podman machine start"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"sandbox error", ValidationError("x"), ExitValidation},
		{"wrapped", fmt.Errorf("context: %w", ExecutionFailure(7, "")), 7},
		{"plain", errors.New("plain"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", GitSyncWarning("remote", nil))
	if !IsKind(err, KindGitSyncWarning) {
		t.Error("IsKind should find wrapped warning")
	}
	if IsKind(err, KindValidation) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindGeneral) {
		t.Error("IsKind matched a plain error")
	}
}
