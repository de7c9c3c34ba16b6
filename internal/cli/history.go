package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HartBrook/keyfit/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent optimization runs",
		Example: `  keyfit history
  keyfit history --limit 50
  keyfit history show 6f1c2a9e`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			displayRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its unit counts",
		Long:  "Shows one recorded run. A unique prefix of the run ID is enough.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			displayRun(cmd.OutOrStdout(), run)
			return nil
		},
	})

	return cmd
}

func displayRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		fmt.Fprintf(w, "Run %s to get started.\n", info("keyfit optimize"))
		return
	}
	for _, run := range runs {
		icon := successIcon
		if !run.FullyOptimized {
			icon = warningIcon
		}
		fmt.Fprintf(w, "%s %s  %s  %s %s\n", icon, shortID(run.ID), run.Source,
			dim(run.StartedAt.Local().Format("2006-01-02 15:04")), dim(runSummary(&run)))
	}
}

func displayRun(w io.Writer, run *history.Run) {
	fmt.Fprintf(w, "Run %s\n\n", info(run.ID))
	printInfo(w, "Source", run.Source)
	if run.Keyword != "" {
		printInfo(w, "Keyword", run.Keyword)
	}
	printInfo(w, "Started", run.StartedAt.Local().Format(time.RFC1123))
	printInfo(w, "Status", run.Status)
	printInfo(w, "Iterations", fmt.Sprintf("%d", run.Iterations))
	printInfo(w, "Characters", fmt.Sprintf("%d -> %d", run.SourceChars, run.ResultChars))
	printInfo(w, "Duration", run.Duration.String())
	if run.Cached {
		printInfo(w, "Cached", "yes")
	}

	if len(run.Units) > 0 {
		fmt.Fprintln(w)
		for _, u := range run.Units {
			icon := successIcon
			if !u.Valid {
				icon = errorIcon
			}
			fmt.Fprintf(w, "  %s %s  %d  %s\n", icon, u.Unit, u.Count, dim(fmt.Sprintf("%s [%d, %d]", u.Kind, u.Min, u.Max)))
		}
	}
	if len(run.Unsatisfied) > 0 {
		fmt.Fprintln(w)
		for _, issue := range run.Unsatisfied {
			printWarning(w, "%s", issue)
		}
	}
}

func runSummary(run *history.Run) string {
	parts := []string{run.Status, fmt.Sprintf("%d chars", run.ResultChars)}
	if run.Cached {
		parts = append(parts, "cached")
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
