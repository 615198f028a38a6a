// Package errors provides typed errors with exit codes for sandboxbox.
//
// # Error Types
//
// SandboxError is the base error type. It carries a Kind, an exit code, the
// failing step and, for readiness failures, a remediation command:
//
//	type SandboxError struct {
//	    Kind        Kind   // validation, backend-unreachable, ...
//	    Code        int    // Exit code
//	    Step        string // Failing step
//	    Message     string // User-facing message
//	    Remediation string // Manual fix command
//	    Cause       error  // Wrapped error
//	}
//
// # Kinds
//
//	ValidationError      bad or missing paths; no session is created
//	BackendNotInstalled  backend binary missing; triggers the install flow
//	BackendUnreachable   backend never became ready within the retry budget
//	GitSyncWarning       non-fatal; the sandbox works with reduced git sync
//	ExecutionFailure     nonzero inner exit code, surfaced verbatim
//	CleanupFailure       logged only, never escalated
//
// # Exit Codes
//
//	ExitSuccess             = 0
//	ExitGeneralError        = 1
//	ExitValidation          = 2
//	ExitBackendNotInstalled = 3
//	ExitBackendUnreachable  = 4
//	ExitConfigError         = 5
//
// ExecutionFailure uses the inner command's exit code and Interrupted uses
// 128+signal.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
