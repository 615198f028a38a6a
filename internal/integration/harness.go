package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/health"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/testutil"
)

const (
	// EnvEnable turns the integration tests on when set to 1.
	EnvEnable = "SANDBOXBOX_INTEGRATION_TESTS"
	// EnvBackend selects the driver; empty means auto-detection.
	EnvBackend = "SANDBOXBOX_TEST_BACKEND"
	// EnvImage selects the image container backends run.
	EnvImage = "SANDBOXBOX_TEST_IMAGE"

	// DefaultImage is small and ships a POSIX shell.
	DefaultImage = "docker.io/library/alpine:3"

	readyTimeout = 5 * time.Minute
)

// Enabled reports whether integration tests were requested.
func Enabled() bool {
	return os.Getenv(EnvEnable) == "1"
}

// TestHarness runs sandboxes against a real backend in an isolated host
// environment.
type TestHarness struct {
	t       *testing.T
	env     *testutil.TestEnv
	cfg     *config.Config
	mgr     *runtime.Manager
	history *audit.Logger
}

// NewHarness creates a harness for the backend selected by EnvBackend.
// It skips the test unless EnvEnable is set, and when the backend cannot be
// made ready.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	if !Enabled() {
		t.Skipf("integration tests disabled (set %s=1 to enable)", EnvEnable)
	}
	testutil.RequireGit(t)

	env := testutil.NewTestEnv(t)
	cfg := config.Default()
	cfg.Backend.Driver = os.Getenv(EnvBackend)
	cfg.Backend.Image = Image()

	driverType := runtime.DriverAuto
	if cfg.Backend.Driver != "" {
		driverType = runtime.DriverType(cfg.Backend.Driver)
	}
	d, err := runtime.New(&runtime.Config{Type: driverType})
	if err != nil {
		t.Skipf("no usable backend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	status := health.Check(ctx, d, health.CheckOptions{})
	if !status.Installed {
		t.Skipf("backend %s is not installed", d.Name())
	}

	mgr := runtime.NewManager(d, runtime.ManagerOptions{})
	if err := mgr.EnsureReady(ctx, false); err != nil {
		t.Skipf("backend %s is not ready: %v", d.Name(), err)
	}

	return &TestHarness{
		t:       t,
		env:     env,
		cfg:     cfg,
		mgr:     mgr,
		history: audit.NewLogger(filepath.Join(env.TmpDir, "state")),
	}
}

// Image returns the image container tests run.
func Image() string {
	if img := os.Getenv(EnvImage); img != "" {
		return img
	}
	return DefaultImage
}

// Env returns the isolated host environment.
func (h *TestHarness) Env() *testutil.TestEnv {
	return h.env
}

// Config returns the configuration sandboxes are created with. Changes
// apply to later calls of Sandbox and Run.
func (h *TestHarness) Config() *config.Config {
	return h.cfg
}

// Manager returns the ready backend manager.
func (h *TestHarness) Manager() *runtime.Manager {
	return h.mgr
}

// History returns the run history sandboxes record to.
func (h *TestHarness) History() *audit.Logger {
	return h.history
}

// Sandbox creates a sandbox on the harness backend.
func (h *TestHarness) Sandbox() *sandbox.Sandbox {
	return sandbox.New(h.cfg, h.mgr,
		sandbox.WithTempRoot(h.env.TempRoot),
		sandbox.WithHostHome(h.env.Home),
		sandbox.WithEnviron(os.Environ),
		sandbox.WithHistory(h.history),
	)
}

// RunResult is the outcome of Run.
type RunResult struct {
	*sandbox.Result
	Stdout string
	Stderr string
	Err    error
}

// Run executes command against project with captured output.
func (h *TestHarness) Run(project string, command ...string) RunResult {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	res, err := h.Sandbox().Run(context.Background(), sandbox.RunOptions{
		ProjectDir: project,
		Command:    command,
		Class:      sandbox.TaskShort,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	return RunResult{Result: res, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// RequireNoRoots fails the test when ephemeral roots were left behind.
func (h *TestHarness) RequireNoRoots() {
	h.t.Helper()
	if roots := h.env.EphemeralRoots(); len(roots) != 0 {
		h.t.Fatalf("ephemeral roots left behind: %v", roots)
	}
}
