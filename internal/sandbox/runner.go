package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/runtime"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// TaskClass selects the timeout of an execution.
type TaskClass string

const (
	TaskInteractive TaskClass = "interactive"
	TaskProbe       TaskClass = "probe"
	TaskShort       TaskClass = "short"
	TaskBuild       TaskClass = "build"
)

// DefaultMaxLaunchRetries bounds backend recoveries for one launch.
const DefaultMaxLaunchRetries = 3

// exitBackendFailure is what podman and docker exit with when the CLI
// itself failed rather than the inner command.
const exitBackendFailure = 125

// stderrTailSize bounds the stderr kept for error reports.
const stderrTailSize = 8 * 1024

// Timeouts bounds each task class. Zero means no timeout.
type Timeouts struct {
	Probe time.Duration
	Short time.Duration
	Build time.Duration
}

// DefaultTimeouts returns the standard task budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Probe: 30 * time.Second,
		Short: 2 * time.Minute,
		Build: 10 * time.Minute,
	}
}

// For returns the timeout of class c.
func (t Timeouts) For(c TaskClass) time.Duration {
	switch c {
	case TaskProbe:
		return t.Probe
	case TaskShort:
		return t.Short
	case TaskBuild:
		return t.Build
	default:
		return 0
	}
}

// Request describes one command to run in a session.
type Request struct {
	Command []string
	Class   TaskClass
	TTY     bool

	// Stdin, Stdout and Stderr are streamed when set. Output is captured
	// either way.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a successful execution.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Attempts int
	Duration time.Duration

	// Session and SyncedBack are set by Sandbox.Run
	Session    *Session
	SyncedBack bool
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Executor         system.CommandExecutor
	Clock            system.Clock
	Timeouts         Timeouts
	MaxLaunchRetries int
}

// Runner launches commands inside a session through the backend driver.
type Runner struct {
	mgr  *runtime.Manager
	opts RunnerOptions
}

// NewRunner creates a Runner using mgr's driver.
func NewRunner(mgr *runtime.Manager, opts RunnerOptions) *Runner {
	if opts.Executor == nil {
		opts.Executor = system.DefaultExecutor()
	}
	if opts.Clock == nil {
		opts.Clock = system.DefaultClock()
	}
	if opts.Timeouts == (Timeouts{}) {
		opts.Timeouts = DefaultTimeouts()
	}
	if opts.MaxLaunchRetries <= 0 {
		opts.MaxLaunchRetries = DefaultMaxLaunchRetries
	}
	return &Runner{mgr: mgr, opts: opts}
}

// TimeoutsFromConfig converts the configured task budgets.
func TimeoutsFromConfig(t config.TimeoutsConfig) Timeouts {
	return Timeouts{
		Probe: DefaultTimeouts().Probe,
		Short: t.Short.Duration,
		Build: t.Build.Duration,
	}
}

// Spec renders the backend run spec for req in s.
func (r *Runner) Spec(s *Session, req Request) runtime.RunSpec {
	d := r.mgr.Driver()
	return runtime.RunSpec{
		Name:        s.ContainerName(),
		Image:       s.Image,
		Workdir:     d.HostPathAlias(s.WorkspacePath),
		Mounts:      s.Mounts,
		Env:         s.Env,
		HostEnvKeys: s.HostEnvKeys,
		Command:     req.Command,
		Interactive: req.Class == TaskInteractive,
		TTY:         req.TTY,
		Labels:      map[string]string{SessionLabel: s.ID},
	}
}

// Run executes req in s. A nonzero inner exit code is an ExecutionFailure
// carrying that code; it is never retried. Launch failures caused by an
// unreachable backend trigger a forced readiness check and a retry, up to
// MaxLaunchRetries times.
func (r *Runner) Run(ctx context.Context, s *Session, req Request) (*Result, error) {
	if len(req.Command) == 0 {
		return nil, errors.ValidationError("no command to run")
	}
	d := r.mgr.Driver()
	inv := d.RunCommand(r.Spec(s, req))
	if inv.Name == "" {
		return nil, errors.ValidationError("backend rendered an empty command")
	}
	logging.Debug("executing", "session", s.ShortID(), "class", req.Class, "command", inv.String())
	return r.execute(ctx, inv, req)
}

// Build runs an image build with the build timeout, recovering from lost
// backend connections the same way Run does.
func (r *Runner) Build(ctx context.Context, spec runtime.BuildSpec, stdout, stderr io.Writer) (*Result, error) {
	d := r.mgr.Driver()
	inv, err := d.BuildCommand(spec)
	if err != nil {
		if errors.Is(err, runtime.ErrBuildUnsupported) {
			return nil, errors.ValidationErrorf("backend %s cannot build images", d.Name())
		}
		return nil, errors.StepError("build", err)
	}
	logging.Debug("building image", "tag", spec.Tag, "command", inv.String())
	return r.execute(ctx, inv, Request{Class: TaskBuild, Stdout: stdout, Stderr: stderr})
}

func (r *Runner) execute(ctx context.Context, inv runtime.Invocation, req Request) (*Result, error) {
	d := r.mgr.Driver()
	start := r.opts.Clock.Now()
	for attempt := 1; ; attempt++ {
		res, err := r.launch(ctx, inv, req)
		if err == nil {
			return &Result{
				Stdout:   res.Stdout,
				Stderr:   res.Stderr,
				Attempts: attempt,
				Duration: r.opts.Clock.Now().Sub(start),
			}, nil
		}

		var tail string
		code := -1
		if res != nil {
			tail = tailString(res.Stderr, stderrTailSize)
			code = res.ExitCode
		}

		if ctx.Err() != nil {
			return nil, errors.StepError("execute", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.StepError("execute", fmt.Errorf("%s task timed out after %s", req.Class, units.HumanDuration(r.opts.Timeouts.For(req.Class))))
		}

		if r.recoverable(code, err, tail) {
			if attempt > r.opts.MaxLaunchRetries {
				return nil, errors.BackendUnreachable("execute", runtime.Remediation(d), fmt.Errorf("launch failed after %d attempts: %s", attempt, lastLine(tail, err)))
			}
			logging.Warn("backend connection lost, recovering", "attempt", attempt, "error", lastLine(tail, err))
			if rerr := r.mgr.Recover(ctx); rerr != nil {
				return nil, rerr
			}
			continue
		}

		if code < 0 {
			return nil, errors.StepError("execute", fmt.Errorf("launching %s: %w", inv.Name, err))
		}
		return nil, errors.ExecutionFailure(code, tail)
	}
}

func (r *Runner) launch(ctx context.Context, inv runtime.Invocation, req Request) (*system.CommandResult, error) {
	if timeout := r.opts.Timeouts.For(req.Class); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := r.opts.Executor.Run(ctx, system.Command{
		Name:   inv.Name,
		Args:   inv.Args,
		Dir:    inv.Dir,
		Env:    inv.Env,
		Stdin:  req.Stdin,
		Stdout: req.Stdout,
		Stderr: req.Stderr,
	})
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = context.DeadlineExceeded
	}
	return res, err
}

var recoverablePatterns = []string{
	"connection refused",
	"broken pipe",
	"rpc error",
	"cannot connect to",
	"connection reset by peer",
	"no such file or directory: podman.sock",
	"is the docker daemon running",
}

// recoverable reports whether a failed launch was the backend CLI losing its
// connection, as opposed to the inner command failing.
func (r *Runner) recoverable(code int, err error, stderr string) bool {
	if r.mgr.Driver().Binary() == "" {
		return false
	}
	if code != exitBackendFailure && code >= 0 {
		return false
	}
	msg := strings.ToLower(stderr + " " + err.Error())
	for _, p := range recoverablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// tailString returns the last n bytes of b, starting at a line boundary
// when one is available.
func tailString(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	b = b[len(b)-n:]
	if i := bytes.IndexByte(b, '\n'); i >= 0 && i < len(b)-1 {
		b = b[i+1:]
	}
	return string(b)
}

func lastLine(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if l := strings.TrimSpace(lines[len(lines)-1]); l != "" {
		return l
	}
	return err.Error()
}
