package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// PodmanDriver runs rootless podman directly on Linux. There is no machine to
// manage; a stopped user service is started synchronously.
type PodmanDriver struct {
	cliDriver
}

// NewPodmanDriver creates a Linux podman driver
func NewPodmanDriver(exec system.CommandExecutor, binary string) *PodmanDriver {
	if binary == "" {
		binary = "podman"
	}
	return &PodmanDriver{cliDriver{exec: exec, binary: binary}}
}

func (d *PodmanDriver) Name() string { return string(DriverPodman) }
func (d *PodmanDriver) Kind() BackendKind { return KindContainer }
func (d *PodmanDriver) Transport() Transport { return TransportBind }
func (d *PodmanDriver) ResolvesHostPaths() bool { return true }
func (d *PodmanDriver) HostPathAlias(hostPath string) string { return hostPath }
func (d *PodmanDriver) SupportsInstances() bool { return false }

func (d *PodmanDriver) Probe(ctx context.Context) error {
	_, err := d.runCmd(ctx, "info", "--format", "json")
	return err
}

func (d *PodmanDriver) ListInstances(ctx context.Context) ([]Instance, error) {
	return nil, nil
}

func (d *PodmanDriver) InitInstance(ctx context.Context) error {
	return nil
}

// StartInstance starts the rootless API socket and migrates stale storage
// state, which is what usually breaks `podman info` after an upgrade.
func (d *PodmanDriver) StartInstance(ctx context.Context) error {
	if _, err := d.runCmd(ctx, "system", "migrate"); err != nil {
		return err
	}
	if _, err := d.exec.Execute(ctx, "systemctl", "--user", "start", "podman.socket"); err != nil {
		return fmt.Errorf("systemctl --user start podman.socket failed: %w", err)
	}
	return nil
}

func (d *PodmanDriver) InstallCommand() []string {
	return linuxInstallCommand(d.exec, "podman")
}

func (d *PodmanDriver) InitCommand() []string { return nil }

func (d *PodmanDriver) StartCommand() []string {
	return []string{"systemctl", "--user", "start", "podman.socket"}
}

func (d *PodmanDriver) VerifyPolicy() Backoff {
	return verifyPolicy(3, 2*time.Second)
}

func (d *PodmanDriver) RunCommand(spec RunSpec) Invocation {
	extra := []string{"--userns=keep-id", "--security-opt", "label=disable"}
	return Invocation{Name: d.binary, Args: containerRunArgs(spec, ToDockerArgs(spec.Mounts), extra...)}
}

func (d *PodmanDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	return containerBuild(d.binary, spec), nil
}

// PodmanMachineDriver runs podman through a VM ("podman machine") on macOS
// and Windows. The VM must be initialized once and booted before use.
type PodmanMachineDriver struct {
	cliDriver
}

// NewPodmanMachineDriver creates a podman machine driver
func NewPodmanMachineDriver(exec system.CommandExecutor, binary string) *PodmanMachineDriver {
	if binary == "" {
		binary = "podman"
	}
	return &PodmanMachineDriver{cliDriver{exec: exec, binary: binary}}
}

func (d *PodmanMachineDriver) Name() string { return string(DriverPodmanMachine) }
func (d *PodmanMachineDriver) Kind() BackendKind { return KindContainer }
func (d *PodmanMachineDriver) Transport() Transport { return TransportBind }
func (d *PodmanMachineDriver) ResolvesHostPaths() bool { return true }
func (d *PodmanMachineDriver) SupportsInstances() bool { return true }

// HostPathAlias returns hostPath: the machine shares the user's home at the
// same path.
func (d *PodmanMachineDriver) HostPathAlias(hostPath string) string { return hostPath }

func (d *PodmanMachineDriver) Probe(ctx context.Context) error {
	_, err := d.runCmd(ctx, "info", "--format", "json")
	return err
}

func (d *PodmanMachineDriver) ListInstances(ctx context.Context) ([]Instance, error) {
	out, err := d.runCmd(ctx, "machine", "list", "--format", "json")
	if err != nil {
		return nil, err
	}
	return parseInstances(out)
}

func parseInstances(out string) ([]Instance, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var instances []Instance
	if err := json.Unmarshal([]byte(out), &instances); err != nil {
		return nil, fmt.Errorf("failed to parse machine list: %w", err)
	}
	for i := range instances {
		instances[i].Name = strings.TrimSuffix(instances[i].Name, "*")
	}
	return instances, nil
}

func (d *PodmanMachineDriver) InitInstance(ctx context.Context) error {
	out, err := d.runCmd(ctx, "machine", "init", "--rootful=false")
	if err != nil && isAlreadyExists(out, err) {
		return nil
	}
	return err
}

// StartInstance launches `podman machine start` without waiting: the VM boot
// takes minutes and readiness is established by probing.
func (d *PodmanMachineDriver) StartInstance(ctx context.Context) error {
	return d.exec.StartDetached(d.binary, "machine", "start")
}

func (d *PodmanMachineDriver) InstallCommand() []string {
	return desktopInstallCommand(d.exec, "podman", "RedHat.Podman")
}

func (d *PodmanMachineDriver) InitCommand() []string {
	return []string{d.binary, "machine", "init", "--rootful=false"}
}

func (d *PodmanMachineDriver) StartCommand() []string {
	return []string{d.binary, "machine", "start"}
}

func (d *PodmanMachineDriver) VerifyPolicy() Backoff {
	return verifyPolicy(12, 5*time.Second)
}

func (d *PodmanMachineDriver) RunCommand(spec RunSpec) Invocation {
	extra := []string{"--userns=keep-id"}
	return Invocation{Name: d.binary, Args: containerRunArgs(spec, ToDockerArgs(spec.Mounts), extra...)}
}

func (d *PodmanMachineDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	return containerBuild(d.binary, spec), nil
}

func isAlreadyExists(out string, err error) bool {
	msg := strings.ToLower(out + " " + err.Error())
	return strings.Contains(msg, "already exists")
}
