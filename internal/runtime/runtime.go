// Package runtime defines the isolation backend interface for sandboxbox.
// Each platform family gets one Driver implementation, selected once at
// startup, and a Manager that brings the backend to a ready state.
package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// BackendKind describes how a backend isolates processes.
type BackendKind string

const (
	KindContainer BackendKind = "container"
	KindVM        BackendKind = "vm"
	KindProcess   BackendKind = "process"
)

// Transport describes how host directories reach the sandbox.
type Transport string

const (
	// TransportBind exposes each host path with a bind mount.
	TransportBind Transport = "bind"
	// TransportSharedFolder exposes one tagged share.
	TransportSharedFolder Transport = "sharedFolder"
	// TransportNone runs on the host filesystem.
	TransportNone Transport = "none"
)

// Instance is a backend instance such as a podman machine.
type Instance struct {
	Name     string `json:"Name"`
	Default  bool   `json:"Default"`
	Running  bool   `json:"Running"`
	Starting bool   `json:"Starting"`
}

// RunSpec describes a command to launch inside the backend.
type RunSpec struct {
	Name        string // container name
	Image       string
	Workdir     string
	Mounts      []Mount
	Env         map[string]string
	HostEnvKeys []string // keys whose value is inherited from the CLI's own environment
	Command     []string
	Interactive bool
	TTY         bool
	Labels      map[string]string
}

// BuildSpec describes an image build.
type BuildSpec struct {
	Tag     string
	File    string
	Context string
}

// Invocation is a fully rendered host command.
type Invocation struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env []string
}

// String renders the invocation for logs and messages.
func (i Invocation) String() string {
	return shellquote.Join(append([]string{i.Name}, i.Args...)...)
}

// Driver is implemented by each backend family.
type Driver interface {
	// Name returns the driver identifier (e.g., "podman-machine")
	Name() string

	// Kind returns the isolation kind
	Kind() BackendKind

	// Binary returns the backend CLI binary, or "" when none is required
	Binary() string

	// Transport returns how host paths are exposed
	Transport() Transport

	// ResolvesHostPaths reports whether symlinks to host absolute paths
	// resolve inside the sandbox once those paths are mounted.
	ResolvesHostPaths() bool

	// HostPathAlias returns the path at which a host path is visible inside
	// the sandbox.
	HostPathAlias(hostPath string) string

	// Probe performs a quick status check of the backend
	Probe(ctx context.Context) error

	// SupportsInstances reports whether the backend has machines to manage
	SupportsInstances() bool

	// ListInstances enumerates backend instances
	ListInstances(ctx context.Context) ([]Instance, error)

	// InitInstance creates the default instance
	InitInstance(ctx context.Context) error

	// StartInstance starts the backend, detached where possible
	StartInstance(ctx context.Context) error

	// InstallCommand returns the command that installs the backend, or nil
	InstallCommand() []string

	// InitCommand and StartCommand are the manual equivalents of
	// InitInstance and StartInstance, used in remediation text
	InitCommand() []string
	StartCommand() []string

	// VerifyPolicy returns the verification loop budget after a start
	VerifyPolicy() Backoff

	// RunCommand renders the launch of spec
	RunCommand(spec RunSpec) Invocation

	// BuildCommand renders an image build
	BuildCommand(spec BuildSpec) (Invocation, error)
}

// Remediation returns the manual commands that bring d to a ready state.
func Remediation(d Driver) string {
	var parts []string
	if c := d.InitCommand(); len(c) > 0 {
		parts = append(parts, shellquote.Join(c...))
	}
	if c := d.StartCommand(); len(c) > 0 {
		parts = append(parts, shellquote.Join(c...))
	}
	return strings.Join(parts, " && ")
}

// cliDriver holds what every CLI-backed driver shares.
type cliDriver struct {
	exec   system.CommandExecutor
	binary string
}

// Binary returns the backend CLI binary
func (d *cliDriver) Binary() string {
	return d.binary
}

// runCmd executes a backend command and returns its output
func (d *cliDriver) runCmd(ctx context.Context, args ...string) (string, error) {
	out, err := d.exec.Execute(ctx, d.binary, args...)
	if err != nil {
		return string(out), fmt.Errorf("%s %s failed: %s: %w", d.binary, strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// ErrBuildUnsupported is returned by drivers that cannot build images.
var ErrBuildUnsupported = fmt.Errorf("image builds are not supported by this backend")

// verifyPolicy builds a Backoff for a driver's verification loop.
func verifyPolicy(attempts int, interval time.Duration) Backoff {
	return Backoff{MaxAttempts: attempts, Interval: interval}
}
