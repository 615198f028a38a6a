package runtime

import (
	"context"
	"io"
	"os"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// Phase is a backend readiness state
type Phase string

const (
	PhaseUnchecked           Phase = "unchecked"
	PhaseNotInstalled        Phase = "not-installed"
	PhaseInstalledNotRunning Phase = "installed-not-running"
	PhaseMachineMissing      Phase = "machine-missing"
	PhaseMachineStopped      Phase = "machine-stopped"
	PhaseInitializing        Phase = "initializing"
	PhaseStarting            Phase = "starting"
	PhaseReady               Phase = "ready"
	PhaseFailed              Phase = "failed"
)

// BackendState is the process-wide view of the backend. Once Ready it stays
// Ready unless a caller forces a re-probe.
type BackendState struct {
	Kind       BackendKind
	Driver     string
	BinaryPath string
	Installed  bool
	Running    bool
	RetryCount int
	Phase      Phase
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	Executor       system.CommandExecutor
	Clock          system.Clock
	ProbeTimeout   time.Duration
	ListTimeout    time.Duration
	InitTimeout    time.Duration
	InstallTimeout time.Duration
	AutoInstall    bool

	// Verify overrides the driver's verification policy when MaxAttempts > 0
	Verify Backoff

	// OnTransition observes every phase change
	OnTransition func(from, to Phase)

	// InstallStdin and InstallOutput are attached to the install command so
	// package managers can prompt.
	InstallStdin  io.Reader
	InstallOutput io.Writer
}

// DefaultManagerOptions returns the standard timeouts
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		Executor:       system.DefaultExecutor(),
		Clock:          system.DefaultClock(),
		ProbeTimeout:   5 * time.Second,
		ListTimeout:    5 * time.Second,
		InitTimeout:    3 * time.Minute,
		InstallTimeout: 10 * time.Minute,
		AutoInstall:    true,
		InstallStdin:   os.Stdin,
		InstallOutput:  os.Stderr,
	}
}

// Manager brings a backend to the ready state and remembers it.
type Manager struct {
	driver Driver
	opts   ManagerOptions
	state  BackendState
}

// NewManager creates a Manager for driver
func NewManager(driver Driver, opts ManagerOptions) *Manager {
	def := DefaultManagerOptions()
	if opts.Executor == nil {
		opts.Executor = def.Executor
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = def.ProbeTimeout
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = def.ListTimeout
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = def.InitTimeout
	}
	if opts.InstallTimeout <= 0 {
		opts.InstallTimeout = def.InstallTimeout
	}
	return &Manager{
		driver: driver,
		opts:   opts,
		state: BackendState{
			Kind:   driver.Kind(),
			Driver: driver.Name(),
			Phase:  PhaseUnchecked,
		},
	}
}

// Driver returns the managed driver
func (m *Manager) Driver() Driver {
	return m.driver
}

// State returns a snapshot of the backend state
func (m *Manager) State() BackendState {
	return m.state
}

// Ready reports whether the backend was verified ready
func (m *Manager) Ready() bool {
	return m.state.Phase == PhaseReady
}

func (m *Manager) transition(to Phase) {
	from := m.state.Phase
	if from == to {
		return
	}
	m.state.Phase = to
	logging.Debug("backend phase", "driver", m.driver.Name(), "from", from, "to", to)
	if m.opts.OnTransition != nil {
		m.opts.OnTransition(from, to)
	}
}

// EnsureReady verifies the backend is installed, running and reachable,
// installing or starting it when needed. A Ready result is cached for the
// process; force re-probes.
func (m *Manager) EnsureReady(ctx context.Context, force bool) error {
	if m.Ready() && !force {
		return nil
	}

	err := m.probe(ctx)
	if err == nil {
		m.markReady()
		return nil
	}
	logging.Debug("backend probe failed", "driver", m.driver.Name(), "error", err)

	if m.binaryMissing(err) {
		m.transition(PhaseNotInstalled)
		if ierr := m.install(ctx); ierr != nil {
			m.transition(PhaseFailed)
			return ierr
		}
		if m.probe(ctx) == nil {
			m.markReady()
			return nil
		}
	}
	m.state.Installed = true
	m.transition(PhaseInstalledNotRunning)

	needStart := true
	if m.driver.SupportsInstances() {
		var ierr error
		needStart, ierr = m.ensureInstance(ctx)
		if ierr != nil {
			m.transition(PhaseFailed)
			return ierr
		}
	}

	m.transition(PhaseStarting)
	if needStart {
		if serr := m.driver.StartInstance(ctx); serr != nil {
			logging.Debug("backend start reported an error, verifying anyway", "error", serr)
		}
	}

	policy := m.driver.VerifyPolicy()
	if m.opts.Verify.MaxAttempts > 0 {
		policy = m.opts.Verify
	}
	final, verr := Retry(ctx, policy, m.opts.Clock, func(ctx context.Context, attempt int) error {
		m.state.RetryCount = attempt
		logging.Debug("verifying backend", "attempt", attempt, "max", policy.MaxAttempts)
		return m.probe(ctx)
	})
	if verr == nil {
		m.markReady()
		return nil
	}
	m.state.RetryCount = final.Attempt
	m.transition(PhaseFailed)
	return errors.BackendUnreachable("backend start", Remediation(m.driver), verr)
}

// Recover forces a fresh readiness check after a connectivity failure.
func (m *Manager) Recover(ctx context.Context) error {
	return m.EnsureReady(ctx, true)
}

// ensureInstance creates or inspects the backend machine and reports whether
// a start is needed.
func (m *Manager) ensureInstance(ctx context.Context) (bool, error) {
	lctx, cancel := context.WithTimeout(ctx, m.opts.ListTimeout)
	instances, err := m.driver.ListInstances(lctx)
	cancel()
	if err != nil {
		logging.Debug("listing backend instances failed", "error", err)
		m.transition(PhaseMachineStopped)
		return true, nil
	}

	if len(instances) == 0 {
		m.transition(PhaseMachineMissing)
		m.transition(PhaseInitializing)
		ictx, cancel := context.WithTimeout(ctx, m.opts.InitTimeout)
		defer cancel()
		if err := m.driver.InitInstance(ictx); err != nil {
			return false, errors.BackendUnreachable("backend init", Remediation(m.driver), err)
		}
		return true, nil
	}

	for _, inst := range instances {
		if inst.Running || inst.Starting {
			logging.Debug("backend instance already running", "name", inst.Name)
			return false, nil
		}
	}
	m.transition(PhaseMachineStopped)
	return true, nil
}

func (m *Manager) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()
	return m.driver.Probe(pctx)
}

func (m *Manager) markReady() {
	m.state.Installed = true
	m.state.Running = true
	if bin := m.driver.Binary(); bin != "" && m.state.BinaryPath == "" {
		if p, err := m.opts.Executor.LookPath(bin); err == nil {
			m.state.BinaryPath = p
		}
	}
	m.transition(PhaseReady)
}

func (m *Manager) binaryMissing(probeErr error) bool {
	bin := m.driver.Binary()
	if bin == "" {
		return false
	}
	if system.IsNotFound(probeErr) {
		return true
	}
	_, err := m.opts.Executor.LookPath(bin)
	return err != nil
}

func (m *Manager) install(ctx context.Context) error {
	bin := m.driver.Binary()
	cmd := m.driver.InstallCommand()
	remediation := ""
	if len(cmd) > 0 {
		remediation = shellquote.Join(cmd...)
	}
	if !m.opts.AutoInstall || len(cmd) == 0 {
		return errors.BackendNotInstalled(bin, remediation, nil)
	}

	logging.UserInfo("Installing %s: %s", bin, remediation)
	ictx, cancel := context.WithTimeout(ctx, m.opts.InstallTimeout)
	defer cancel()
	_, err := m.opts.Executor.Run(ictx, system.Command{
		Name:   cmd[0],
		Args:   cmd[1:],
		Stdin:  m.opts.InstallStdin,
		Stdout: m.opts.InstallOutput,
		Stderr: m.opts.InstallOutput,
	})
	if err != nil {
		return errors.BackendNotInstalled(bin, remediation, err)
	}

	p, err := m.opts.Executor.LookPath(bin)
	if err != nil {
		return errors.BackendNotInstalled(bin, remediation, err)
	}
	m.state.BinaryPath = p
	m.state.Installed = true
	return nil
}
