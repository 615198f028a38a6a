package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/audit"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
)

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Show past sandbox sessions",
	Long: `Show the recorded events of past sandbox sessions.

With a session ID (or a prefix of one), only that session's events are
shown. Use --json for one JSON object per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var (
	historyLimit int
	historyClear bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Show at most this many events (0 for all)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the recorded history")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	h := app.Default.History()
	if h == nil {
		logInfo("History is disabled: no state directory")
		return nil
	}

	if historyClear {
		if err := h.Clear(); err != nil {
			return errors.StepError("clear history", err)
		}
		logSuccess("Cleared %s", h.Path())
		return nil
	}

	var (
		events []audit.Event
		err    error
	)
	if len(args) == 1 {
		events, err = h.Session(args[0])
	} else {
		events, err = h.Recent(historyLimit)
	}
	if err != nil {
		return errors.StepError("read history", err)
	}

	if len(events) == 0 {
		logInfo("No sessions recorded")
		return nil
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
		}
		return nil
	}
	return printHistory(w, events)
}

func printHistory(w io.Writer, events []audit.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tEVENT\tEXIT\tDETAILS")
	for _, e := range events {
		exit := "-"
		if e.ExitCode != nil {
			exit = strconv.Itoa(*e.ExitCode)
		}
		details := e.Details
		if e.Type == audit.EventStart && e.Project != "" {
			details = fmt.Sprintf("%s (%s, %s)", details, e.Project, e.Backend)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), shortSession(e.Session), e.Type, exit, details)
	}
	return tw.Flush()
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
