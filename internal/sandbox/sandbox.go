package sandbox

import (
	"context"
	"fmt"

	"github.com/kballard/go-shellquote"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/credentials"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/workspace"
)

// Sandbox runs commands against disposable copies of host projects.
type Sandbox struct {
	cfg   *config.Config
	mgr   *runtime.Manager
	exec  system.CommandExecutor
	fs    system.FileSystem
	clock system.Clock
	coord *Coordinator

	history  *audit.Logger
	tempRoot string
	hostHome string
	environ  func() []string
}

// New creates a Sandbox for the given configuration and backend manager.
func New(cfg *config.Config, mgr *runtime.Manager, opts ...Option) *Sandbox {
	s := &Sandbox{
		cfg:   cfg,
		mgr:   mgr,
		exec:  system.DefaultExecutor(),
		fs:    system.DefaultFS(),
		clock: system.DefaultClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.coord == nil {
		s.coord = NewCoordinator(CoordinatorOptions{FS: s.fs, Keep: cfg.Workspace.Keep})
	}
	return s
}

// Coordinator returns the cleanup coordinator of this sandbox.
func (s *Sandbox) Coordinator() *Coordinator {
	return s.coord
}

// Run executes opts.Command against an ephemeral copy of opts.ProjectDir.
//
// The steps run in a fixed order: project validation, backend readiness,
// workspace provisioning, credential bridging, mount planning, execution,
// optional sync back. Once the ephemeral root exists, its removal is
// registered with the coordinator, which Run invokes before returning.
// A Sandbox runs any number of sequential sessions.
func (s *Sandbox) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	defer s.coord.Cleanup()

	if opts.ProjectDir == "" {
		return nil, errors.ValidationError("project directory is required")
	}
	host, err := workspace.NewProvisioner(s.exec, s.fs, workspace.Options{TempRoot: s.tempRoot}).Validate(opts.ProjectDir)
	if err != nil {
		return nil, err
	}
	project, err := config.LoadProject(host)
	if err != nil {
		return nil, errors.ConfigError("failed to load project config", err)
	}
	cfg := s.cfg.Merge(project)

	command := opts.Command
	if len(command) == 0 {
		command = project.DefaultCommand()
	}
	if len(command) == 0 {
		return nil, errors.ValidationError("no command given and the project defines no default command")
	}

	logging.Debug("ensuring backend is ready", "driver", s.mgr.Driver().Name())
	if err := s.mgr.EnsureReady(ctx, false); err != nil {
		return nil, err
	}
	d := s.mgr.Driver()

	logging.Debug("provisioning workspace", "project", host, "mode", cfg.Workspace.Mode)
	prov, err := workspace.NewProvisioner(s.exec, s.fs, workspace.Options{
		Mode:        cfg.Workspace.Mode,
		Exclude:     cfg.Workspace.Exclude,
		TempRoot:    s.tempRoot,
		RemoteAlias: d.HostPathAlias,
	}).Provision(ctx, host)
	if prov != nil && prov.EphemeralRoot != "" {
		s.coord.RemoveAllOnCleanup(prov.EphemeralRoot)
	}
	if err != nil {
		return nil, err
	}
	for _, w := range prov.Warnings {
		logging.UserWarning("%v", w)
	}

	sess := &Session{
		ID:              NewSessionID(),
		HostProjectPath: prov.HostProjectPath,
		EphemeralRoot:   prov.EphemeralRoot,
		WorkspacePath:   prov.WorkspacePath,
		BackendKind:     d.Kind(),
		Backend:         d.Name(),
		Image:           cfg.Backend.Image,
		GitLinks:        prov.Links,
		CreatedAt:       s.clock.Now(),
	}
	if err := config.SaveSessionMarker(sess.EphemeralRoot, sess.Marker()); err != nil {
		logging.Warn("failed to write session marker", "root", sess.EphemeralRoot, "error", err)
	}
	s.record(audit.Event{
		Type:    audit.EventStart,
		Session: sess.ID,
		Project: sess.HostProjectPath,
		Backend: sess.Backend,
		Details: shellquote.Join(command...),
	})

	logging.Debug("bridging credentials", "session", sess.ShortID())
	overrides := credentials.Env(project.Env).Merge(opts.Env)
	bridged, err := credentials.NewBridge(credentials.Options{
		HostHome:          s.hostHome,
		Paths:             cfg.Credentials.Paths,
		EnvKeys:           cfg.Credentials.Env,
		ResolvesHostPaths: d.ResolvesHostPaths(),
		Environ:           s.environ,
	}).BuildEnv(sess.EphemeralRoot, overrides)
	if err != nil {
		return nil, errors.StepError("credential bridge", err)
	}
	sess.Env = bridged.Env
	sess.HostEnvKeys = bridged.HostEnvKeys

	sess.Mounts, err = PlanMounts(PlanInput{
		HostProjectPath:   sess.HostProjectPath,
		EphemeralRoot:     sess.EphemeralRoot,
		Mode:              cfg.Workspace.Mode,
		Transport:         d.Transport(),
		ResolvesHostPaths: d.ResolvesHostPaths(),
		Alias:             d.HostPathAlias,
		Credentials:       bridged.Links,
		Extra:             project.ExtraMounts(),
	})
	if err != nil {
		return nil, err
	}

	class := opts.Class
	if class == "" {
		class = TaskInteractive
	}
	runner := NewRunner(s.mgr, RunnerOptions{
		Executor:         s.exec,
		Clock:            s.clock,
		Timeouts:         TimeoutsFromConfig(cfg.Timeouts),
		MaxLaunchRetries: cfg.Backend.MaxLaunchRetries,
	})
	logging.Debug("executing in sandbox", "session", sess.ShortID(), "workspace", sess.WorkspacePath)
	res, runErr := runner.Run(ctx, sess, Request{
		Command: command,
		Class:   class,
		TTY:     opts.TTY,
		Stdin:   opts.Stdin,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	})
	if res == nil {
		res = &Result{ExitCode: errors.GetExitCode(runErr)}
	}
	res.Session = sess
	s.recordOutcome(sess, res.ExitCode, runErr)

	if (opts.Sync || cfg.Sync.PushOnExit) && (runErr == nil || errors.IsKind(runErr, errors.KindExecutionFailure)) {
		pushed, serr := workspace.NewGit(s.exec).SyncBack(ctx, sess.GitLinks.ToHost)
		if serr != nil {
			logging.UserWarning("%v", serr)
		}
		res.SyncedBack = pushed
		if pushed {
			s.record(audit.Event{Type: audit.EventSync, Session: sess.ID, Details: sess.GitLinks.ToHost.CurrentBranch})
		}
	}

	if runErr != nil {
		return res, runErr
	}
	return res, nil
}

func (s *Sandbox) record(e audit.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock.Now()
	}
	if err := s.history.Log(e); err != nil {
		logging.Warn("failed to record session history", "type", e.Type, "error", err)
	}
}

// recordOutcome logs how execution ended: an exit code, an interrupt, or an
// error that kept the command from running.
func (s *Sandbox) recordOutcome(sess *Session, code int, runErr error) {
	e := audit.Event{Session: sess.ID, ExitCode: audit.ExitCode(code)}
	switch {
	case s.coord.SignalExitCode() != 0:
		e.Type = audit.EventInterrupt
		e.ExitCode = audit.ExitCode(s.coord.SignalExitCode())
	case runErr == nil || errors.IsKind(runErr, errors.KindExecutionFailure):
		e.Type = audit.EventExit
	default:
		e.Type = audit.EventError
		e.Details = fmt.Sprint(runErr)
	}
	s.record(e)
}
