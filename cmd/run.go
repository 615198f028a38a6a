package cmd

import (
	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run <projectDir> [command...]",
	Short: "Run a command in a sandbox",
	Long: `Runs a command once against a disposable copy of the project and exits
with the command's exit code.

A single command argument is split like a shell would:
  sandboxbox run . "npm test -- --watch=false"
Several arguments are used as they are:
  sandboxbox run . npm test

Without a command the project's default command from .sandboxbox.yaml runs.`,
	Args: projectArgs(1, -1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args[1:])
	if err != nil {
		return err
	}
	return runInSandbox(cmd, args[0], command, sandbox.TaskInteractive)
}

// parseCommand splits a single quoted command string; several arguments are
// taken verbatim.
func parseCommand(args []string) ([]string, error) {
	if len(args) != 1 {
		return args, nil
	}
	words, err := shellquote.Split(args[0])
	if err != nil {
		return nil, errors.ValidationErrorf("cannot parse command %q: %v", args[0], err)
	}
	return words, nil
}
