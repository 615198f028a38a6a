package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
)

// shellCommand starts the sandbox user's shell, falling back to bash.
var shellCommand = []string{"/bin/sh", "-c", `exec "${SHELL:-bash}"`}

var shellCmd = &cobra.Command{
	Use:   "shell <projectDir>",
	Short: "Open an interactive shell in a sandbox",
	Long: `Opens an interactive shell against a disposable copy of the project.

The shell is $SHELL inside the sandbox, or bash when unset. Exiting the shell
removes the sandbox; use --sync to push commits back first.`,
	Args: projectArgs(1, 1),
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	return runInSandbox(cmd, args[0], shellCommand, sandbox.TaskInteractive)
}
