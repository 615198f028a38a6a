// Package health provides read-only checks of the isolation backend.
//
// Unlike runtime.Manager.EnsureReady, a health check never installs,
// initializes or starts anything; it only reports what it finds. It backs
// `sandboxbox backend status`.
//
// # Health Status
//
// Backend health is represented by Status:
//
//	StatusReady        - Binary found and the backend answers
//	StatusStopped      - Binary found but the backend does not answer
//	StatusNotInstalled - Backend binary not on PATH
//
// # Check Functions
//
//	result := health.Check(ctx, driver, health.CheckOptions{})
//	// result.Installed, .Reachable, .Instances, .Remediation
//
//	status := result.Summary()
//
// FormatDuration renders ages for status and gc listings.
package health
