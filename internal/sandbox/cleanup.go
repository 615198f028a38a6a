package sandbox

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// DefaultSignalGrace is how long a signal handler waits for the control
// thread to finish before cleaning up itself.
const DefaultSignalGrace = 10 * time.Second

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	FS system.FileSystem

	// Keep leaves removable paths in place and logs them instead
	Keep bool

	// Grace bounds the wait for the control thread after a signal
	Grace time.Duration

	// Exit terminates the process after signal cleanup; nil uses os.Exit
	Exit func(code int)
}

type cleanupStep struct {
	name string
	fn   func() error
}

// Coordinator runs registered cleanup steps in reverse registration order
// when a session ends, whether normally, with an error or by a signal. Each
// step runs at most once. Steps registered after a cleanup belong to the next
// one, so a coordinator serves any number of sequential sessions. Failures
// are logged and never returned.
type Coordinator struct {
	opts CoordinatorOptions

	mu       sync.Mutex
	steps    []cleanupStep
	failures []error
	done     chan struct{}

	// running serializes cleanups started by the control thread and by a
	// signal handler.
	running sync.Mutex
	signal  atomic.Int32
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	if opts.FS == nil {
		opts.FS = system.DefaultFS()
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultSignalGrace
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	return &Coordinator{opts: opts, done: make(chan struct{})}
}

// Register adds a named cleanup step.
func (c *Coordinator) Register(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, cleanupStep{name: name, fn: fn})
}

// RegisterCloser closes cl during cleanup.
func (c *Coordinator) RegisterCloser(name string, cl io.Closer) {
	c.Register(name, cl.Close)
}

// RemoveAllOnCleanup removes path during cleanup, unless the coordinator
// keeps files.
func (c *Coordinator) RemoveAllOnCleanup(path string) {
	c.Register("remove "+path, func() error {
		if c.opts.Keep {
			logging.UserInfo("Keeping %s", path)
			return nil
		}
		logging.Debug("removing", "path", path)
		return c.opts.FS.RemoveAll(path)
	})
}

// Cleanup runs the steps registered since the previous cleanup. Concurrent
// calls are serialized; the later ones find nothing left to run.
func (c *Coordinator) Cleanup() {
	c.running.Lock()
	defer c.running.Unlock()

	c.mu.Lock()
	steps := c.steps
	c.steps = nil
	c.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if err := s.fn(); err != nil {
			cf := errors.CleanupFailure(s.name, err)
			logging.Warn("cleanup step failed", "step", s.name, "error", err)
			c.mu.Lock()
			c.failures = append(c.failures, cf)
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	close(c.done)
	c.done = make(chan struct{})
	c.mu.Unlock()
}

// Pending reports how many steps wait for the next cleanup.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Failures returns the cleanup steps that failed.
func (c *Coordinator) Failures() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.failures...)
}

// Done is closed when the next cleanup has finished.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// SignalExitCode returns 128+signal once a termination signal arrived, and
// 0 otherwise.
func (c *Coordinator) SignalExitCode() int {
	if n := c.signal.Load(); n > 0 {
		return errors.ExitSignalBase + int(n)
	}
	return 0
}

// WatchSignals handles termination signals until stop is called. On a
// signal it cancels the session through cancel, gives the control thread
// the grace period to finish, runs cleanup and exits with 128+signal.
func (c *Coordinator) WatchSignals(cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, terminationSignals...)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			c.handleSignal(sig, cancel)
		case <-quit:
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}

func (c *Coordinator) handleSignal(sig os.Signal, cancel context.CancelFunc) {
	num := signalNumber(sig)
	c.signal.Store(int32(num))
	logging.Debug("received signal", "signal", sig.String())
	done := c.Done()
	pending := c.Pending() > 0
	if cancel != nil {
		cancel()
	}

	if pending {
		t := time.NewTimer(c.opts.Grace)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			logging.Warn("control thread did not finish in time, cleaning up", "grace", c.opts.Grace)
		}
	}
	c.Cleanup()
	c.opts.Exit(errors.ExitSignalBase + num)
}
