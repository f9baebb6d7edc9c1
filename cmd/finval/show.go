package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/internal/state"
)

var (
	showFull   bool
	showDelete bool
	showFormat string
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded report",
	Long: `Print the report of a past run.

--format json|yaml prints the raw report instead of the dashboard.
--delete removes the run from history.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showFull, "full", false, "Print full analyses")
	showCmd.Flags().BoolVar(&showDelete, "delete", false, "Delete the run instead of printing it")
	showCmd.Flags().StringVar(&showFormat, "format", "", "Print the raw report as json or yaml")
}

func runShow(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("run history is disabled (storage.driver: none)")
	}
	defer store.Close()

	if showDelete {
		if err := store.DeleteRun(ctx, args[0]); err != nil {
			return runLookupError(args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	}
	return showRun(ctx, cmd.OutOrStdout(), store, args[0], showFormat, showFull)
}

// showRun prints one stored report, either rendered or raw.
func showRun(ctx context.Context, w io.Writer, store state.ReportReader, runID, format string, full bool) error {
	r, err := store.GetReport(ctx, runID)
	if err != nil {
		return runLookupError(runID, err)
	}

	if format != "" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return report.Write(w, r, f)
	}

	p := report.NewPresenter(w)
	p.Full = full
	p.Render(r)
	return nil
}

func runLookupError(runID string, err error) error {
	if errors.Is(err, state.ErrRunNotFound) {
		return fmt.Errorf("no run with id %q", runID)
	}
	return err
}
