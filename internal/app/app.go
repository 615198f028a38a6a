// Package app provides the application context for sandboxbox.
// It allows dependency injection for testing.
package app

import (
	"fmt"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// App holds the application dependencies
type App struct {
	// Paths holds the configured paths
	Paths *config.Paths

	// Config is the global configuration; loaded from Paths on first use
	Config *config.Config

	// Manager is the backend lifecycle manager; built from Config on first use
	Manager *runtime.Manager

	// Executor and FS back every external command and file removal
	Executor system.CommandExecutor
	FS       system.FileSystem

	// OnTransition observes backend phase changes of a Manager built by App
	OnTransition func(from, to runtime.Phase)
}

// Option is a function that configures the App
type Option func(*App)

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithConfig sets a preloaded configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithManager sets a custom backend manager
func WithManager(m *runtime.Manager) Option {
	return func(a *App) {
		a.Manager = m
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(exec system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = exec
	}
}

// WithFileSystem sets a custom filesystem
func WithFileSystem(fs system.FileSystem) Option {
	return func(a *App) {
		a.FS = fs
	}
}

// New creates a new App with the given options.
// Configuration and backend are resolved lazily.
func New(opts ...Option) *App {
	app := &App{
		Paths:    config.DefaultPaths(),
		Executor: system.DefaultExecutor(),
		FS:       system.DefaultFS(),
	}

	for _, opt := range opts {
		opt(app)
	}
	return app
}

// LoadConfig returns the global configuration, reading it on first use.
func (a *App) LoadConfig() (*config.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	cfg, err := config.Load(a.Paths.ConfigFile)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration", err)
	}
	a.Config = cfg
	return cfg, nil
}

// Backend returns the backend manager, creating it for the configured driver
// on first use. driver overrides the configured driver when not empty.
func (a *App) Backend(driver string) (*runtime.Manager, error) {
	if a.Manager != nil {
		return a.Manager, nil
	}
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, err
	}
	if driver == "" {
		driver = cfg.Backend.Driver
	}
	if driver == "" {
		driver = string(runtime.DriverAuto)
	}

	d, err := runtime.New(&runtime.Config{
		Type:     runtime.DriverType(driver),
		Binary:   cfg.Backend.Binary,
		Executor: a.Executor,
	})
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("cannot use backend %q", driver), err)
	}
	logging.Debug("selected backend", "driver", d.Name(), "kind", d.Kind())

	opts := ManagerOptions(cfg)
	opts.Executor = a.Executor
	opts.OnTransition = a.OnTransition
	a.Manager = runtime.NewManager(d, opts)
	runtime.SetGlobal(a.Manager)
	return a.Manager, nil
}

// ManagerOptions converts the configured backend settings.
func ManagerOptions(cfg *config.Config) runtime.ManagerOptions {
	opts := runtime.DefaultManagerOptions()
	opts.AutoInstall = cfg.Backend.AutoInstall
	opts.ProbeTimeout = cfg.Timeouts.Probe.Duration
	opts.ListTimeout = cfg.Timeouts.List.Duration
	opts.InitTimeout = cfg.Timeouts.Init.Duration
	opts.InstallTimeout = cfg.Timeouts.Install.Duration
	if cfg.Backend.VerifyAttempts > 0 {
		opts.Verify = runtime.Backoff{
			MaxAttempts: cfg.Backend.VerifyAttempts,
			Interval:    cfg.Backend.VerifyInterval.Duration,
		}
	}
	return opts
}

// Sandbox returns a Sandbox using the app's configuration and backend.
func (a *App) Sandbox(driver string, opts ...sandbox.Option) (*sandbox.Sandbox, error) {
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, err
	}
	mgr, err := a.Backend(driver)
	if err != nil {
		return nil, err
	}
	base := []sandbox.Option{
		sandbox.WithExecutor(a.Executor),
		sandbox.WithFileSystem(a.FS),
		sandbox.WithTempRoot(a.Paths.TempRoot),
		sandbox.WithHistory(a.History()),
	}
	return sandbox.New(cfg, mgr, append(base, opts...)...), nil
}

// History returns the run history logger, or nil when Paths has no state
// directory.
func (a *App) History() *audit.Logger {
	return audit.NewLogger(a.Paths.StateDir)
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
