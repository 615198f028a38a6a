package runtime

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// DockerDriver runs containers through the Docker CLI. On Linux the daemon is
// a system service; on macOS and Windows it lives in Docker Desktop's VM.
type DockerDriver struct {
	cliDriver
	goos string
	uid  int
	gid  int
}

// NewDockerDriver creates a Docker driver
func NewDockerDriver(exec system.CommandExecutor, binary string) *DockerDriver {
	if binary == "" {
		binary = "docker"
	}
	return &DockerDriver{
		cliDriver: cliDriver{exec: exec, binary: binary},
		goos:      goruntime.GOOS,
		uid:       os.Getuid(),
		gid:       os.Getgid(),
	}
}

func (d *DockerDriver) Name() string { return string(DriverDocker) }

func (d *DockerDriver) Kind() BackendKind { return KindContainer }

func (d *DockerDriver) Transport() Transport { return TransportBind }

func (d *DockerDriver) ResolvesHostPaths() bool { return true }

func (d *DockerDriver) HostPathAlias(hostPath string) string { return hostPath }

func (d *DockerDriver) SupportsInstances() bool { return false }

func (d *DockerDriver) Probe(ctx context.Context) error {
	_, err := d.runCmd(ctx, "info", "--format", "{{.ServerVersion}}")
	return err
}

func (d *DockerDriver) ListInstances(ctx context.Context) ([]Instance, error) {
	return nil, nil
}

func (d *DockerDriver) InitInstance(ctx context.Context) error {
	return nil
}

func (d *DockerDriver) StartInstance(ctx context.Context) error {
	if d.goos == "linux" {
		c := d.StartCommand()
		if out, err := d.exec.Execute(ctx, c[0], c[1:]...); err != nil {
			return fmt.Errorf("%s failed: %s: %w", Invocation{Name: c[0], Args: c[1:]}, out, err)
		}
		return nil
	}
	return d.exec.StartDetached(d.binary, "desktop", "start")
}

func (d *DockerDriver) InstallCommand() []string {
	return desktopInstallCommand(d.exec, "docker", "Docker.DockerDesktop", "--cask")
}

func (d *DockerDriver) InitCommand() []string { return nil }

func (d *DockerDriver) StartCommand() []string {
	if d.goos == "linux" {
		if d.uid == 0 {
			return []string{"systemctl", "start", "docker"}
		}
		return []string{"systemctl", "--user", "start", "docker"}
	}
	return []string{d.binary, "desktop", "start"}
}

func (d *DockerDriver) VerifyPolicy() Backoff {
	if d.goos == "linux" {
		return verifyPolicy(3, 2*time.Second)
	}
	return verifyPolicy(12, 5*time.Second)
}

func (d *DockerDriver) RunCommand(spec RunSpec) Invocation {
	var extra []string
	if d.goos == "linux" && d.uid > 0 {
		extra = append(extra, "--user", fmt.Sprintf("%d:%d", d.uid, d.gid))
	}
	return Invocation{Name: d.binary, Args: containerRunArgs(spec, ToDockerArgs(spec.Mounts), extra...)}
}

func (d *DockerDriver) BuildCommand(spec BuildSpec) (Invocation, error) {
	return containerBuild(d.binary, spec), nil
}
