package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/health"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
)

var gcForce bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove ephemeral roots left behind by killed runs",
	Long: `Finds sandbox roots in the temp directory whose owning process is gone and
removes them.

Without --force, prints what would be removed (dry run).

A root is orphaned when:
  - its session marker names a process that no longer exists, or
  - it has no session marker and is older than 24 hours`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcForce, "force", false, "Actually remove orphaned roots (default is dry run)")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	a := app.Default
	stale, err := sandbox.FindStaleRoots(sandbox.GCOptions{TempRoot: a.Paths.TempRoot})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", a.Paths.TempRoot, err)
	}

	if len(stale) == 0 {
		logInfo("No orphaned sandbox roots found")
		return nil
	}

	if !gcForce {
		printGCDryRun(cmd.OutOrStdout(), stale, time.Now())
		return nil
	}

	failed := sandbox.RemoveStaleRoots(a.FS, stale)
	for _, r := range failed {
		logWarning("Failed to remove %s", r.Path)
	}
	removed := len(stale) - len(failed)
	if len(failed) > 0 {
		return errors.CleanupFailure("gc", fmt.Errorf("%d of %d roots could not be removed", len(failed), len(stale)))
	}
	logSuccess("Removed %d orphaned sandbox root(s)", removed)
	return nil
}

func printGCDryRun(w io.Writer, stale []sandbox.StaleRoot, now time.Time) {
	fmt.Fprintln(w, "Dry run (use --force to actually clean up):")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Orphaned sandbox roots:")
	for _, r := range stale {
		if r.Marker != nil {
			fmt.Fprintf(w, "  %s  %s, %s ago, pid %d, project %s\n",
				r.Path, r.Reason, health.FormatDuration(now.Sub(r.Marker.CreatedAt)), r.Marker.PID, r.Marker.HostProject)
		} else {
			fmt.Fprintf(w, "  %s  %s\n", r.Path, r.Reason)
		}
	}
	fmt.Fprintln(w)
}
