package runtime

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

var errRefused = errors.New("Cannot connect to Podman: connection refused")

func newTestManager(d Driver, mockExec *system.MockExecutor, clock system.Clock) *Manager {
	return NewManager(d, ManagerOptions{
		Executor:    mockExec,
		Clock:       clock,
		AutoInstall: false,
	})
}

func TestEnsureReady_FastPath(t *testing.T) {
	d := NewMockDriver()
	m := newTestManager(d, system.NewMockExecutor(), system.NewFakeClock(time.Unix(0, 0)))

	require.NoError(t, m.EnsureReady(context.Background(), false))

	assert.Equal(t, PhaseReady, m.State().Phase)
	assert.Equal(t, 1, d.Calls("Probe"))
	assert.Zero(t, d.Calls("StartInstance"))
	assert.Equal(t, "/usr/bin/mockctl", m.State().BinaryPath)
	assert.True(t, m.State().Installed)
	assert.True(t, m.State().Running)
}

func TestEnsureReady_CachedUnlessForced(t *testing.T) {
	d := NewMockDriver()
	m := newTestManager(d, system.NewMockExecutor(), system.NewFakeClock(time.Unix(0, 0)))

	require.NoError(t, m.EnsureReady(context.Background(), false))
	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, 1, d.Calls("Probe"))

	require.NoError(t, m.EnsureReady(context.Background(), true))
	assert.Equal(t, 2, d.Calls("Probe"))
}

func TestEnsureReady_FailTwiceThenSucceed(t *testing.T) {
	d := NewMockDriver()
	d.ProbeResults = []error{errRefused, errRefused, nil}
	clock := system.NewFakeClock(time.Unix(0, 0))
	m := newTestManager(d, system.NewMockExecutor(), clock)

	require.NoError(t, m.EnsureReady(context.Background(), false))

	assert.Equal(t, 3, d.Calls("Probe"))
	assert.Equal(t, 1, d.Calls("StartInstance"))
	assert.Equal(t, PhaseReady, m.State().Phase)
	assert.Equal(t, 2, m.State().RetryCount)
}

func TestEnsureReady_AlwaysFails(t *testing.T) {
	d := NewMockDriver()
	d.ProbeResults = []error{errRefused}
	d.Policy = Backoff{MaxAttempts: 5, Interval: 2 * time.Second}
	clock := system.NewFakeClock(time.Unix(0, 0))
	m := newTestManager(d, system.NewMockExecutor(), clock)

	err := m.EnsureReady(context.Background(), false)
	require.Error(t, err)

	assert.True(t, sberrors.IsKind(err, sberrors.KindBackendUnreachable))
	assert.Equal(t, PhaseFailed, m.State().Phase)
	assert.Equal(t, 5, m.State().RetryCount)
	// the fast-path probe plus one per verification attempt
	assert.Equal(t, 1+5, d.Calls("Probe"))
	assert.LessOrEqual(t, clock.Elapsed(), 5*2*time.Second)
	assert.Contains(t, err.Error(), "mockctl machine start")
}

func TestEnsureReady_VerifyOverride(t *testing.T) {
	d := NewMockDriver()
	d.ProbeResults = []error{errRefused}
	m := NewManager(d, ManagerOptions{
		Executor: system.NewMockExecutor(),
		Clock:    system.NewFakeClock(time.Unix(0, 0)),
		Verify:   Backoff{MaxAttempts: 2, Interval: time.Millisecond},
	})

	require.Error(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, 2, m.State().RetryCount)
}

func TestEnsureReady_SlowVMTimesOut12Times(t *testing.T) {
	mockExec := system.NewMockExecutor()
	mockExec.Responses["podman info"] = system.MockResponse{Err: context.DeadlineExceeded}
	mockExec.Responses["podman machine list"] = system.MockResponse{
		Output: []byte(`[{"Name":"podman-machine-default*","Default":true,"Running":false,"Starting":false}]`),
	}
	clock := system.NewFakeClock(time.Unix(0, 0))
	d := NewPodmanMachineDriver(mockExec, "")
	m := NewManager(d, ManagerOptions{Executor: mockExec, Clock: clock})

	err := m.EnsureReady(context.Background(), false)
	require.Error(t, err)

	assert.Equal(t, PhaseFailed, m.State().Phase)
	assert.Equal(t, 12, m.State().RetryCount)
	assert.Equal(t, 13, mockExec.Count("podman info"))
	assert.Equal(t, 1, mockExec.Count("podman machine start"))
	assert.Equal(t, 55*time.Second, clock.Elapsed())

	var sbErr *sberrors.SandboxError
	require.True(t, errors.As(err, &sbErr))
	assert.Contains(t, sbErr.Remediation, "podman machine init --rootful=false")
	assert.Contains(t, sbErr.Remediation, "podman machine start")
	assert.Contains(t, err.Error(), "podman machine init")
}

func TestEnsureReady_MissingMachineIsInitialized(t *testing.T) {
	mockExec := system.NewMockExecutor()
	mockExec.AddSequence("podman info",
		system.MockResponse{Err: errRefused},
		system.MockResponse{Err: errRefused},
		system.MockResponse{Output: []byte(`{}`)},
	)
	mockExec.Responses["podman machine list"] = system.MockResponse{Output: []byte(`[]`)}
	mockExec.Responses["podman machine init"] = system.MockResponse{
		Output:   []byte("Error: podman-machine-default: VM already exists"),
		ExitCode: 125,
	}

	var phases []Phase
	d := NewPodmanMachineDriver(mockExec, "")
	m := NewManager(d, ManagerOptions{
		Executor:     mockExec,
		Clock:        system.NewFakeClock(time.Unix(0, 0)),
		OnTransition: func(_, to Phase) { phases = append(phases, to) },
	})

	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, []Phase{
		PhaseInstalledNotRunning,
		PhaseMachineMissing,
		PhaseInitializing,
		PhaseStarting,
		PhaseReady,
	}, phases)
	assert.Equal(t, 1, mockExec.Count("podman machine init"))

	start, ok := mockExec.LastCommand()
	require.True(t, ok)
	assert.Equal(t, "podman info --format json", start.String())
}

func TestEnsureReady_InitFailure(t *testing.T) {
	d := NewMockDriver()
	d.Instances = true
	d.ProbeResults = []error{errRefused}
	d.Errors["init"] = errors.New("no space left on device")
	m := newTestManager(d, system.NewMockExecutor(), system.NewFakeClock(time.Unix(0, 0)))

	err := m.EnsureReady(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend init")
	assert.Contains(t, err.Error(), "no space left")
	assert.Zero(t, d.Calls("StartInstance"))
	assert.Equal(t, PhaseFailed, m.State().Phase)
}

func TestEnsureReady_RunningInstanceSkipsStart(t *testing.T) {
	d := NewMockDriver()
	d.Instances = true
	d.InstanceList = []Instance{{Name: "default", Starting: true}}
	d.ProbeResults = []error{errRefused, nil}
	m := newTestManager(d, system.NewMockExecutor(), system.NewFakeClock(time.Unix(0, 0)))

	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Zero(t, d.Calls("StartInstance"))
	assert.Zero(t, d.Calls("InitInstance"))
}

func TestEnsureReady_StoppedInstanceIsStarted(t *testing.T) {
	d := NewMockDriver()
	d.Instances = true
	d.InstanceList = []Instance{{Name: "default"}}
	d.ProbeResults = []error{errRefused, nil}

	var phases []Phase
	m := NewManager(d, ManagerOptions{
		Executor:     system.NewMockExecutor(),
		Clock:        system.NewFakeClock(time.Unix(0, 0)),
		OnTransition: func(_, to Phase) { phases = append(phases, to) },
	})

	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, 1, d.Calls("StartInstance"))
	assert.Contains(t, phases, PhaseMachineStopped)
}

func TestEnsureReady_NotInstalledWithoutAutoInstall(t *testing.T) {
	d := NewMockDriver()
	d.ProbeResults = []error{exec.ErrNotFound}
	d.Install = []string{"brew", "install", "mockctl"}
	mockExec := system.NewMockExecutor()
	mockExec.Missing["mockctl"] = true
	m := newTestManager(d, mockExec, system.NewFakeClock(time.Unix(0, 0)))

	err := m.EnsureReady(context.Background(), false)
	require.Error(t, err)
	assert.True(t, sberrors.IsKind(err, sberrors.KindBackendNotInstalled))
	assert.Contains(t, err.Error(), "brew install mockctl")
	assert.Equal(t, PhaseFailed, m.State().Phase)
	assert.Zero(t, d.Calls("StartInstance"))
}

// installingExecutor makes the backend binary appear once the installer ran.
type installingExecutor struct {
	*system.MockExecutor
}

func (e installingExecutor) Run(ctx context.Context, c system.Command) (*system.CommandResult, error) {
	res, err := e.MockExecutor.Run(ctx, c)
	delete(e.Missing, "mockctl")
	return res, err
}

func TestEnsureReady_InstallsMissingBackend(t *testing.T) {
	d := NewMockDriver()
	d.ProbeResults = []error{exec.ErrNotFound, nil}
	d.Install = []string{"brew", "install", "mockctl"}
	mockExec := system.NewMockExecutor()
	mockExec.Missing["mockctl"] = true

	m := NewManager(d, ManagerOptions{
		Executor:    installingExecutor{mockExec},
		Clock:       system.NewFakeClock(time.Unix(0, 0)),
		AutoInstall: true,
	})

	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, 1, mockExec.Count("brew install"))
	assert.Equal(t, PhaseReady, m.State().Phase)
	assert.Equal(t, "/usr/bin/mockctl", m.State().BinaryPath)
	assert.Zero(t, d.Calls("StartInstance"))
}

func TestEnsureReady_ProcessDriverAlwaysReady(t *testing.T) {
	mockExec := system.NewMockExecutor()
	mockExec.Missing["bwrap"] = true
	m := newTestManager(NewProcessDriver(mockExec), mockExec, system.NewFakeClock(time.Unix(0, 0)))

	require.NoError(t, m.EnsureReady(context.Background(), false))
	assert.Equal(t, KindProcess, m.State().Kind)
	assert.Empty(t, m.State().BinaryPath)
}

func TestVerifyPolicy_RootlessLinuxUsesFewerAttempts(t *testing.T) {
	mockExec := system.NewMockExecutor()
	linux := NewPodmanDriver(mockExec, "").VerifyPolicy()
	vm := NewPodmanMachineDriver(mockExec, "").VerifyPolicy()
	assert.Less(t, linux.MaxAttempts, vm.MaxAttempts)
	assert.Equal(t, 12, vm.MaxAttempts)
}
