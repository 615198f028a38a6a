// Package logging provides logging utilities for sandboxbox.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("probing backend", "driver", name, "attempt", n)
//	logging.Warn("cleanup failed", "path", root, "error", err)
//
// AttachFile tees every record into a JSON log file (--log-file).
//
// # User Output
//
// User-facing messages are formatted with status indicators and styled
// with lipgloss when stderr is a terminal:
//
//	logging.UserInfo("Starting %s...", driver)
//	logging.UserSuccess("Backend ready")
//	logging.UserWarning("identity copy failed: %v", err)
//	logging.UserError("run failed: %v", err)
//
// All user output goes to stderr by default; stdout belongs to the
// sandboxed command.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
