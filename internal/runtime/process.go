package runtime

import (
	"context"
	"sort"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// ProcessDriver runs commands as host processes. When bubblewrap is
// available the filesystem is made read-only except for the planned rw
// mounts; otherwise isolation is limited to the redirected environment.
type ProcessDriver struct {
	exec  system.CommandExecutor
	bwrap string
}

// NewProcessDriver creates a process driver, using bwrap when found on PATH.
func NewProcessDriver(exec system.CommandExecutor) *ProcessDriver {
	d := &ProcessDriver{exec: exec}
	if p, err := exec.LookPath("bwrap"); err == nil {
		d.bwrap = p
	}
	return d
}

func (d *ProcessDriver) Name() string { return string(DriverProcess) }

func (d *ProcessDriver) Kind() BackendKind { return KindProcess }

func (d *ProcessDriver) Binary() string { return "" }

func (d *ProcessDriver) Transport() Transport { return TransportNone }

func (d *ProcessDriver) ResolvesHostPaths() bool { return true }

func (d *ProcessDriver) HostPathAlias(hostPath string) string { return hostPath }

// Probe always succeeds: the host itself is the backend.
func (d *ProcessDriver) Probe(ctx context.Context) error { return nil }

func (d *ProcessDriver) SupportsInstances() bool { return false }

func (d *ProcessDriver) ListInstances(ctx context.Context) ([]Instance, error) { return nil, nil }

func (d *ProcessDriver) InitInstance(ctx context.Context) error { return nil }

func (d *ProcessDriver) StartInstance(ctx context.Context) error { return nil }

func (d *ProcessDriver) InstallCommand() []string { return nil }

func (d *ProcessDriver) InitCommand() []string { return nil }

func (d *ProcessDriver) StartCommand() []string { return nil }

func (d *ProcessDriver) VerifyPolicy() Backoff { return verifyPolicy(1, 0) }

// Sandboxed reports whether commands run under bubblewrap.
func (d *ProcessDriver) Sandboxed() bool { return d.bwrap != "" }

func (d *ProcessDriver) RunCommand(spec RunSpec) Invocation {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	if d.bwrap == "" {
		inv := Invocation{Dir: spec.Workdir, Env: env}
		if len(spec.Command) > 0 {
			inv.Name = spec.Command[0]
			inv.Args = spec.Command[1:]
		}
		return inv
	}

	args := []string{
		"--ro-bind", "/", "/",
		"--dev", "/dev",
		"--proc", "/proc",
		"--die-with-parent",
	}
	args = append(args, ToBwrapArgs(spec.Mounts)...)
	if spec.Workdir != "" {
		args = append(args, "--chdir", spec.Workdir)
	}
	args = append(args, "--")
	args = append(args, spec.Command...)
	return Invocation{Name: d.bwrap, Args: args, Env: env}
}

func (d *ProcessDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	return Invocation{}, ErrBuildUnsupported
}
