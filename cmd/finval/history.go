package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/state"
)

var (
	historyLimit int
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past validation runs",
	Long: `List recorded validation runs, newest first.

Use --purge to delete runs older than a given age, e.g. --purge 720h.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete runs older than this age before listing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Run history is disabled (storage.driver: none).")
		return nil
	}
	defer store.Close()

	return listHistory(ctx, cmd.OutOrStdout(), store, historyLimit, historyPurge)
}

// listHistory optionally purges old runs and prints a table of the rest.
func listHistory(ctx context.Context, w io.Writer, store state.RunStore, limit int, purge time.Duration) error {
	if purge > 0 {
		n, err := store.PurgeOlderThan(ctx, purge)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		fmt.Fprintf(w, "Purged %d run(s) older than %s\n", n, purge)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded. Run 'finval validate <document>' to start.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Run", "Document", "Completed", "Overall", "Agents", "Issues", "Failed"})
	for _, r := range runs {
		doc := r.DocumentName
		if doc == "" {
			doc = "-"
		}
		tw.AppendRow(table.Row{
			r.ID,
			doc,
			r.CompletedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.1f%%", r.AggregateScore),
			r.AgentsUsed,
			r.IssueCount,
			r.FailureCount,
		})
	}
	tw.Render()
	return nil
}
