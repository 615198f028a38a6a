// Package integration runs sandboxes against a real backend.
//
// The tests are skipped unless SANDBOXBOX_INTEGRATION_TESTS=1. They need:
//   - git on PATH
//   - a backend that is installed (podman, docker, apple container, or the
//     process backend)
//   - network access to pull the test image, unless it is cached
//
// SANDBOXBOX_TEST_BACKEND picks the driver (auto-detected when empty) and
// SANDBOXBOX_TEST_IMAGE the image (alpine by default).
//
// Run with:
//
//	SANDBOXBOX_INTEGRATION_TESTS=1 SANDBOXBOX_TEST_BACKEND=podman go test -v ./internal/integration/...
//
// # Test Harness
//
//	func TestMyIntegration(t *testing.T) {
//	    h := integration.NewHarness(t) // Skips if disabled or not ready
//	    project := h.Env().CreateRepo("repo")
//
//	    r := h.Run(project, "cat", "README.md")
//	    // inspect r.Stdout, r.Err, r.ExitCode ...
//
//	    h.RequireNoRoots()
//	}
//
// The harness provides an isolated HOME, git config and temp root, a ready
// backend manager and a run history, all discarded with the test.
package integration
