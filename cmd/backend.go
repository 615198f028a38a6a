package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/health"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/tui"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Inspect or start the isolation backend",
}

var backendStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the isolation backend status",
	Long: `Shows which backend was selected and whether it is installed and
reachable. Nothing is installed or started.`,
	Args: cobra.NoArgs,
	RunE: runBackendStatus,
}

var backendStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Bring the isolation backend to a ready state",
	Long: `Installs, initializes and starts the backend as needed, the same way a
run does before launching, and waits until it answers.`,
	Args: cobra.NoArgs,
	RunE: runBackendStart,
}

func init() {
	backendCmd.AddCommand(backendStatusCmd)
	backendCmd.AddCommand(backendStartCmd)
	rootCmd.AddCommand(backendCmd)
}

func runBackendStatus(cmd *cobra.Command, args []string) error {
	a := app.Default
	cfg, err := a.LoadConfig()
	if err != nil {
		return err
	}
	mgr, err := a.Backend(backendName)
	if err != nil {
		return err
	}

	result := health.Check(cmd.Context(), mgr.Driver(), health.CheckOptions{
		Executor:     a.Executor,
		ProbeTimeout: cfg.Timeouts.Probe.Duration,
	})
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Status health.Status `json:"status"`
			*health.CheckResult
		}{result.Summary(), result})
	}
	printBackendStatus(cmd.OutOrStdout(), result)
	return nil
}

func printBackendStatus(w io.Writer, r *health.CheckResult) {
	fmt.Fprintf(w, "Backend:    %s (%s, %s mounts)\n", r.Driver, r.Kind, r.Transport)
	if r.Binary != "" {
		path := r.BinaryPath
		if path == "" {
			path = "not found"
		}
		fmt.Fprintf(w, "Binary:     %s (%s)\n", r.Binary, path)
	}
	fmt.Fprintf(w, "Status:     %s\n", r.Summary())
	for _, inst := range r.Instances {
		state := "stopped"
		if inst.Running {
			state = "running"
		} else if inst.Starting {
			state = "starting"
		}
		def := ""
		if inst.Default {
			def = " (default)"
		}
		fmt.Fprintf(w, "Machine:    %s%s %s\n", inst.Name, def, state)
	}
	if r.ProbeError != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.ProbeError)
	}
	if r.Remediation != "" {
		fmt.Fprintf(w, "Start with: %s\n", r.Remediation)
	}
}

func runBackendStart(cmd *cobra.Command, args []string) error {
	a := app.Default
	progress := tui.NewProgress(os.Stderr)
	defer progress.Stop()
	a.OnTransition = progress.Observe

	mgr, err := a.Backend(backendName)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := mgr.EnsureReady(cmd.Context(), true); err != nil {
		return err
	}
	state := mgr.State()
	logSuccess("Backend %s is ready (%s)", state.Driver, health.FormatDuration(time.Since(start)))
	return nil
}
