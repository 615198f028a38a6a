// Package runtime drives the isolation backends a sandbox runs on.
//
// Supported drivers:
//   - podman: rootless podman on Linux
//   - podman-machine: podman inside a VM (macOS, Windows)
//   - docker: Docker Engine or Docker Desktop
//   - apple: Apple Container lightweight VMs (macOS)
//   - process: host processes, confined by bubblewrap when available
//
// Driver selection is automatic based on platform and installed tools. Use
// New with a Config, or construct a driver directly for testing.
//
// # Driver Interface
//
// A Driver knows how to probe its backend, create and boot its machine if it
// has one, and render run and build invocations. Drivers never block on a
// machine boot; readiness is decided by probing.
//
// # Lifecycle
//
// Manager walks a backend through the readiness phases:
//
//	unchecked -> not-installed (install) | installed-not-running
//	installed-not-running -> machine-missing -> initializing -> starting
//	installed-not-running -> machine-stopped -> starting
//	starting -> ready | failed
//
// The fast path is a single probe. Verification after a start retries the
// probe on a fixed Backoff and only sleeps between attempts. A failed
// verification returns a BackendUnreachable error carrying the manual
// init and start commands.
//
// # Mock Driver
//
// For testing, use NewMockDriver() and script ProbeResults to simulate a
// backend that comes up after a number of probes.
package runtime
