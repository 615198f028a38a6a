package runtime

import (
	"context"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// AppleDriver runs each sandbox in a lightweight VM with Apple's `container`
// CLI (macOS 26+, Apple silicon). Host directories reach the VM through a
// single tagged virtiofs share, so symlinks to arbitrary host paths do not
// resolve inside it.
type AppleDriver struct {
	cliDriver
}

// NewAppleDriver creates an Apple Container driver
func NewAppleDriver(exec system.CommandExecutor, binary string) *AppleDriver {
	if binary == "" {
		binary = "container"
	}
	return &AppleDriver{cliDriver{exec: exec, binary: binary}}
}

func (d *AppleDriver) Name() string { return string(DriverApple) }

func (d *AppleDriver) Kind() BackendKind { return KindVM }

func (d *AppleDriver) Transport() Transport { return TransportSharedFolder }

func (d *AppleDriver) ResolvesHostPaths() bool { return false }

func (d *AppleDriver) HostPathAlias(hostPath string) string { return hostPath }

func (d *AppleDriver) SupportsInstances() bool { return false }

func (d *AppleDriver) Probe(ctx context.Context) error {
	_, err := d.runCmd(ctx, "system", "status")
	return err
}

func (d *AppleDriver) ListInstances(ctx context.Context) ([]Instance, error) {
	return nil, nil
}

func (d *AppleDriver) InitInstance(ctx context.Context) error {
	return nil
}

func (d *AppleDriver) StartInstance(ctx context.Context) error {
	return d.exec.StartDetached(d.binary, "system", "start")
}

func (d *AppleDriver) InstallCommand() []string {
	return desktopInstallCommand(d.exec, "container", "")
}

func (d *AppleDriver) InitCommand() []string { return nil }

func (d *AppleDriver) StartCommand() []string {
	return []string{d.binary, "system", "start"}
}

func (d *AppleDriver) VerifyPolicy() Backoff {
	return verifyPolicy(12, 5*time.Second)
}

func (d *AppleDriver) RunCommand(spec RunSpec) Invocation {
	return Invocation{Name: d.binary, Args: containerRunArgs(spec, ToAppleArgs(spec.Mounts))}
}

func (d *AppleDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	return containerBuild(d.binary, spec), nil
}
