package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

func TestNew(t *testing.T) {
	app := New()

	if app == nil {
		t.Fatal("New() returned nil")
	}

	// Should have default paths
	if app.Paths == nil {
		t.Error("Paths should not be nil")
	}
	if app.Executor == nil || app.FS == nil {
		t.Error("Executor and FS should default to the OS implementations")
	}

	// Config and Manager are resolved lazily
	if app.Config != nil || app.Manager != nil {
		t.Error("Config and Manager should be nil until first use")
	}
}

func TestNew_WithPaths(t *testing.T) {
	customPaths := &config.Paths{
		ConfigFile: "/custom/config.toml",
		TempRoot:   "/custom/tmp",
	}

	app := New(WithPaths(customPaths))

	if app.Paths != customPaths {
		t.Error("WithPaths did not set custom paths")
	}
}

func TestHistory(t *testing.T) {
	if New(WithPaths(&config.Paths{})).History() != nil {
		t.Error("History() should be nil without a state directory")
	}

	dir := t.TempDir()
	h := New(WithPaths(&config.Paths{StateDir: dir})).History()
	if h == nil {
		t.Fatal("History() should not be nil with a state directory")
	}
	if h.Path() != filepath.Join(dir, "history.jsonl") {
		t.Errorf("Path() = %q", h.Path())
	}
}

func TestNew_WithManager(t *testing.T) {
	mgr := runtime.NewManager(runtime.NewMockDriver(), runtime.ManagerOptions{Executor: system.NewMockExecutor()})

	app := New(WithManager(mgr))

	got, err := app.Backend("")
	if err != nil {
		t.Fatalf("Backend() error = %v", err)
	}
	if got != mgr {
		t.Error("WithManager did not set manager")
	}
}

func TestNew_MultipleOptions(t *testing.T) {
	customPaths := &config.Paths{ConfigFile: "/custom"}
	cfg := config.Default()
	mockExec := system.NewMockExecutor()
	fs := system.NewMockFS()

	app := New(
		WithPaths(customPaths),
		WithConfig(cfg),
		WithExecutor(mockExec),
		WithFileSystem(fs),
	)

	if app.Paths != customPaths {
		t.Error("Paths not set correctly")
	}
	if app.Config != cfg {
		t.Error("Config not set correctly")
	}
	if app.Executor != mockExec {
		t.Error("Executor not set correctly")
	}
	if app.FS != fs {
		t.Error("FS not set correctly")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workspace]\nmode = \"direct\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	app := New(WithPaths(&config.Paths{ConfigFile: path}))
	cfg, err := app.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Workspace.Mode != config.WorkspaceModeDirect {
		t.Errorf("Mode = %q, want %q", cfg.Workspace.Mode, config.WorkspaceModeDirect)
	}

	again, _ := app.LoadConfig()
	if again != cfg {
		t.Error("LoadConfig should cache the loaded config")
	}
}

func TestLoadConfig_InvalidIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workspace]\nmode = \"mirror\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(WithPaths(&config.Paths{ConfigFile: path})).LoadConfig()
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("GetExitCode() = %d, want %d", got, errors.ExitConfigError)
	}
}

func TestBackend_DriverOverride(t *testing.T) {
	defer runtime.SetGlobal(nil)
	mockExec := system.NewMockExecutor()
	mockExec.Missing["bwrap"] = true

	app := New(WithConfig(config.Default()), WithExecutor(mockExec))
	mgr, err := app.Backend("process")
	if err != nil {
		t.Fatalf("Backend() error = %v", err)
	}
	if mgr.Driver().Kind() != runtime.KindProcess {
		t.Errorf("Kind = %q, want %q", mgr.Driver().Kind(), runtime.KindProcess)
	}
	if runtime.Global() != mgr {
		t.Error("Backend should register the global manager")
	}
}

func TestBackend_UnknownDriver(t *testing.T) {
	app := New(WithConfig(config.Default()), WithExecutor(system.NewMockExecutor()))
	_, err := app.Backend("hyperv")
	if !errors.IsKind(err, errors.KindConfig) {
		t.Errorf("Backend() error = %v, want a config error", err)
	}
}

func TestManagerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.AutoInstall = false
	cfg.Backend.VerifyAttempts = 4
	cfg.Backend.VerifyInterval = config.Duration{Duration: 3 * time.Second}

	opts := ManagerOptions(cfg)
	if opts.AutoInstall {
		t.Error("AutoInstall should follow the config")
	}
	if opts.Verify.MaxAttempts != 4 || opts.Verify.Interval != 3*time.Second {
		t.Errorf("Verify = %+v, want 4 attempts every 3s", opts.Verify)
	}
	if opts.ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %s, want 5s", opts.ProbeTimeout)
	}
}

func TestSetDefault(t *testing.T) {
	// Save original default
	original := Default
	defer func() { Default = original }()

	customApp := New(WithConfig(config.Default()))
	SetDefault(customApp)

	if Default != customApp {
		t.Error("SetDefault did not update Default")
	}
}

func TestResetDefault(t *testing.T) {
	// Save original default
	original := Default
	defer func() { Default = original }()

	// Set a custom default
	customApp := New(WithConfig(config.Default()))
	SetDefault(customApp)

	// Reset to default
	ResetDefault()

	// Should have a new default app with default paths
	if Default == customApp {
		t.Error("ResetDefault did not create new Default")
	}
	if Default.Paths == nil {
		t.Error("ResetDefault should create app with default paths")
	}
}
