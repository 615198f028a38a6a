package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/tui"
)

// activeCoordinator is the coordinator of the sandbox this process runs, if any.
var activeCoordinator *sandbox.Coordinator

// newSandbox builds a Sandbox from the app context and the global flags.
// The returned coordinator owns the log file and the progress display.
func newSandbox() (*sandbox.Sandbox, *sandbox.Coordinator, error) {
	a := app.Default
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if keepRoot {
		cfg.Workspace.Keep = true
	}
	if syncBack {
		cfg.Sync.PushOnExit = true
	}

	coord := sandbox.NewCoordinator(sandbox.CoordinatorOptions{FS: a.FS, Keep: cfg.Workspace.Keep})
	if logFile != nil {
		coord.RegisterCloser("log file", logFile)
		logFile = nil
	}

	progress := tui.NewProgress(os.Stderr)
	a.OnTransition = progress.Observe
	coord.Register("progress display", func() error {
		progress.Stop()
		return nil
	})

	sb, err := a.Sandbox(backendName, sandbox.WithCoordinator(coord))
	if err != nil {
		coord.Cleanup()
		return nil, nil, err
	}
	activeCoordinator = coord
	return sb, coord, nil
}

// runInSandbox runs command for projectDir with signal handling in place.
func runInSandbox(cmd *cobra.Command, projectDir string, command []string, class sandbox.TaskClass) error {
	sb, coord, err := newSandbox()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stop := coord.WatchSignals(cancel)
	defer stop()

	res, err := sb.Run(ctx, sandbox.RunOptions{
		ProjectDir: projectDir,
		Command:    command,
		Class:      class,
		TTY:        class == sandbox.TaskInteractive && isTerminal(cmd),
		Stdin:      cmd.InOrStdin(),
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	if res != nil && res.SyncedBack {
		logSuccess("Pushed sandbox commits to %s", res.Session.HostProjectPath)
	}
	if code := coord.SignalExitCode(); code != 0 {
		return errors.Interrupted(code - errors.ExitSignalBase)
	}
	return err
}

// isTerminal reports whether the command talks to a terminal on both ends.
func isTerminal(cmd *cobra.Command) bool {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return logging.IsTerminal(in) && logging.IsTerminal(cmd.OutOrStdout())
}

// projectArgs validates "<projectDir> [...]" arguments, failing with a
// ValidationError so usage mistakes exit with the validation status.
func projectArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.ValidationErrorf("%s: missing project directory", cmd.Name())
		}
		if max >= 0 && len(args) > max {
			return errors.ValidationErrorf("%s: accepts at most %d arguments, got %d", cmd.Name(), max, len(args))
		}
		return nil
	}
}
