package sandbox

import (
	"io"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// RunOptions holds all options for one sandboxed execution.
type RunOptions struct {
	// ProjectDir is the host project (required)
	ProjectDir string

	// Command is the command to run; empty uses the project default
	Command []string

	// Class selects the timeout; empty means interactive
	Class TaskClass

	// TTY allocates a terminal in the sandbox
	TTY bool

	// Env is merged over the project env and the bridged environment
	Env map[string]string

	// Sync pushes sandbox commits back to the host after execution
	Sync bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithExecutor sets the command executor used for git and the backend.
func WithExecutor(exec system.CommandExecutor) Option {
	return func(s *Sandbox) {
		s.exec = exec
	}
}

// WithFileSystem sets the filesystem used for cleanup.
func WithFileSystem(fs system.FileSystem) Option {
	return func(s *Sandbox) {
		s.fs = fs
	}
}

// WithClock sets the clock used for durations.
func WithClock(c system.Clock) Option {
	return func(s *Sandbox) {
		s.clock = c
	}
}

// WithTempRoot sets the parent directory of ephemeral roots.
func WithTempRoot(dir string) Option {
	return func(s *Sandbox) {
		s.tempRoot = dir
	}
}

// WithHostHome sets the home directory credentials are read from.
func WithHostHome(dir string) Option {
	return func(s *Sandbox) {
		s.hostHome = dir
	}
}

// WithEnviron sets the host environment the bridge reads.
func WithEnviron(fn func() []string) Option {
	return func(s *Sandbox) {
		s.environ = fn
	}
}

// WithCoordinator sets the cleanup coordinator. By default each Sandbox
// creates its own.
func WithCoordinator(c *Coordinator) Option {
	return func(s *Sandbox) {
		s.coord = c
	}
}

// WithHistory records session events to h. A nil history records nothing.
func WithHistory(h *audit.Logger) Option {
	return func(s *Sandbox) {
		s.history = h
	}
}
