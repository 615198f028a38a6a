package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/logging"
)

var (
	verbose     bool
	jsonOutput  bool
	logFilePath string
	configPath  string
	backendName string
	keepRoot    bool
	syncBack    bool

	// logFile is handed to the first cleanup coordinator, or closed by
	// Execute when no sandbox ran.
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sandboxbox",
	Short: "Run commands and coding agents in disposable sandboxes",
	Long: `sandboxbox runs a command against a disposable copy of a project.

Each run gets:
  - An ephemeral clone of the project in a fresh temp directory
  - A redirected HOME with host credentials bridged in
  - A container, VM or restricted process, whichever the platform offers
  - Cleanup of everything it created, including on Ctrl-C

Commits made in the sandbox reach the host only when pushed (--sync).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		if configPath != "" {
			app.Default.Paths.ConfigFile = configPath
		}
		if logFilePath != "" {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return errors.ConfigError("failed to open log file", err)
			}
			logging.AttachFile(f)
			logFile = f
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	if cfg, err := config.Load(configFlagFromArgs(os.Args[1:])); err == nil {
		addAgentCommands(cfg)
	}

	err := rootCmd.Execute()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if err != nil && !errors.IsKind(err, errors.KindExecutionFailure) {
		logError("%v", err)
	}
	return err
}

// ExitCode maps the result of Execute to a process exit status. A signal
// that interrupted a sandbox wins over the error it caused.
func ExitCode(err error) int {
	if activeCoordinator != nil {
		if code := activeCoordinator.SignalExitCode(); code != 0 {
			return code
		}
	}
	return errors.GetExitCode(err)
}

// configFlagFromArgs finds --config before flag parsing, so agents defined in
// a custom config file can be registered as subcommands.
func configFlagFromArgs(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return app.Default.Paths.ConfigFile
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	flags.StringVar(&logFilePath, "log-file", "", "Also write debug logs as JSON to this file")
	flags.StringVar(&configPath, "config", "", "Path to the global config file")
	flags.StringVar(&backendName, "backend", "", "Backend driver: auto, podman, podman-machine, docker, apple, process")
	flags.BoolVar(&keepRoot, "keep", false, "Keep the ephemeral root after the run for debugging")
	flags.BoolVar(&syncBack, "sync", false, "Push sandbox commits back to the host project after the run")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
