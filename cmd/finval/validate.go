package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/artifact"
	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/extract"
	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/internal/state"
	"github.com/ShayCichocki/finval/internal/tui"
	"github.com/ShayCichocki/finval/internal/watch"
	"github.com/ShayCichocki/finval/pkg/models"
)

// previewChars is how much extracted text --preview shows.
const previewChars = 1000

var (
	validateAgents      []string
	validatePreview     bool
	validateTUI         bool
	validateWatch       bool
	validateFormat      string
	validateOutDir      string
	validateNoExport    bool
	validateFull        bool
	validateConcurrency int
)

var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Validate a financial statement",
	Long: `Validate a financial statement document (PDF, text or markdown).

The enabled agents review the document one after another (or in parallel with
--concurrency). The report is printed, written to the output directory and
recorded in run history.

Examples:
  finval validate annual-report.pdf
  finval validate statements.txt --agents bs,pl --preview
  finval validate annual-report.pdf --tui --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateAgents, "agents", nil, "Agents to run (balance_sheet, profit_loss, cash_flow, notes or bs, pl, cf)")
	validateCmd.Flags().BoolVar(&validatePreview, "preview", false, "Print the first 1000 characters of extracted text")
	validateCmd.Flags().BoolVar(&validateTUI, "tui", false, "Show an interactive progress view")
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "Re-run whenever the document changes")
	validateCmd.Flags().StringVar(&validateFormat, "format", "", "Report file format: json or yaml (default from config)")
	validateCmd.Flags().StringVarP(&validateOutDir, "out", "o", "", "Directory for the report file (default from config)")
	validateCmd.Flags().BoolVar(&validateNoExport, "no-export", false, "Do not write a report file")
	validateCmd.Flags().BoolVar(&validateFull, "full", false, "Print full analyses instead of the first line")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 1, "Agents to run at once")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Validation.Concurrency = validateConcurrency
	}

	kinds, err := selectAgents(cfg, validateAgents)
	if err != nil {
		return err
	}
	format, err := reportFormat(cfg, validateFormat)
	if err != nil {
		return err
	}
	outDir := cfg.Report.OutputDir
	if validateOutDir != "" {
		outDir = validateOutDir
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := openDebugLogger(cfg)
	defer debug.Close()

	client, err := createCompleter(ctx, cfg, log.Default())
	if err != nil {
		return err
	}
	defer api.Close(client)

	store, err := openStore(ctx, cfg)
	if err != nil {
		// History is optional for a one-off validation.
		fmt.Fprintf(os.Stderr, "Warning: run history disabled: %v\n", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}
	artifacts, err := openArtifacts(cfg)
	if err != nil {
		return err
	}

	run := &validateRun{
		path:      args[0],
		kinds:     kinds,
		client:    client,
		options:   runnerOptions(cfg, debug),
		timeout:   cfg.LLM.Timeout,
		store:     store,
		artifacts: artifacts,
		format:    format,
		outDir:    outDir,
		export:    !validateNoExport,
		preview:   validatePreview,
		full:      validateFull,
		useTUI:    validateTUI,
		out:       cmd.OutOrStdout(),
	}

	if !validateWatch {
		_, err := run.once(ctx)
		return err
	}

	if _, err := run.once(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	w, err := watch.New(run.path, watch.DefaultDebounce, log.Default())
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintf(run.out, "\nWatching %s for changes (Ctrl+C to stop)\n", w.Path())
	return w.Run(ctx, func(ctx context.Context) error {
		_, err := run.once(ctx)
		return err
	})
}

// selectAgents resolves the --agents flag, falling back to configuration.
func selectAgents(cfg *config.Config, names []string) ([]models.AgentKind, error) {
	if len(names) == 0 {
		return cfg.EnabledAgents()
	}
	kinds := make([]models.AgentKind, 0, len(names))
	for _, name := range names {
		k, err := models.ParseAgentKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return models.CanonicalKinds(kinds), nil
}

// validateRun holds everything needed to validate one document, possibly
// many times in watch mode.
type validateRun struct {
	path      string
	kinds     []models.AgentKind
	client    api.Completer
	options   []orchestrator.Option
	timeout   time.Duration
	store     state.RunStore
	artifacts artifact.Store
	format    report.Format
	outDir    string
	export    bool
	preview   bool
	full      bool
	useTUI    bool
	out       io.Writer
}

func (v *validateRun) once(ctx context.Context) (*models.ValidationReport, error) {
	text, err := extract.File(extract.FileExtractor{}, v.path)
	if err != nil {
		return nil, err
	}
	if v.preview {
		color.New(color.FgCyan, color.Bold).Fprintln(v.out, "Document Preview")
		fmt.Fprintln(v.out, extract.Preview(text, previewChars))
		fmt.Fprintln(v.out)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req := models.ValidationRequest{
		DocumentText:  text,
		DocumentName:  filepath.Base(v.path),
		EnabledAgents: v.kinds,
	}

	var r *models.ValidationReport
	if v.useTUI {
		r, err = v.runTUI(ctx, req)
	} else {
		r, err = v.runPlain(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	p := report.NewPresenter(v.out)
	p.Full = v.full
	p.Render(r)

	return r, v.persist(ctx, r)
}

func (v *validateRun) runPlain(ctx context.Context, req models.ValidationRequest) (*models.ValidationReport, error) {
	failed := color.New(color.FgRed)
	opts := append([]orchestrator.Option{}, v.options...)
	opts = append(opts, orchestrator.WithProgress(func(p orchestrator.Progress) {
		if p.Err != nil {
			failed.Fprintf(v.out, "[%d/%d] %s failed: %v\n", p.Completed, p.Total, p.Kind.Label(), p.Err)
			return
		}
		fmt.Fprintf(v.out, "[%d/%d] %s done\n", p.Completed, p.Total, p.Kind.Label())
	}))

	orch, err := orchestrator.New(orchestrator.RequiredConfig{Client: v.client}, opts...)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(v.out, "Validating %s with %d agent(s)...\n", req.DocumentName, len(models.CanonicalKinds(req.EnabledAgents)))
	return orch.Run(ctx, req)
}

// runTUI runs the orchestrator behind the progress view. Quitting the view
// before the run finishes cancels it.
func (v *validateRun) runTUI(ctx context.Context, req models.ValidationRequest) (*models.ValidationReport, error) {
	// Log output corrupts the display.
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emitter := orchestrator.NewEventEmitter(64)
	opts := append([]orchestrator.Option{}, v.options...)
	opts = append(opts, orchestrator.WithEventEmitter(emitter))
	orch, err := orchestrator.New(orchestrator.RequiredConfig{Client: v.client}, opts...)
	if err != nil {
		return nil, err
	}

	program, _ := tui.NewProgressProgram(req.EnabledAgents, cancel)

	forwarded := make(chan struct{})
	go func() {
		tui.ForwardEvents(program, emitter)
		close(forwarded)
	}()

	type outcome struct {
		report *models.ValidationReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := orch.Run(ctx, req)
		emitter.Close()
		<-forwarded
		program.Send(tui.DoneMsg{Report: r, Err: err})
		done <- outcome{report: r, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("run progress view: %w", err)
	}
	res := <-done
	return res.report, res.err
}

// persist writes the report file and records the run. History and upload
// failures are reported as warnings.
func (v *validateRun) persist(ctx context.Context, r *models.ValidationReport) error {
	if v.export {
		path, err := report.SaveFile(v.outDir, r, v.format, r.CompletedAt)
		if err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		fmt.Fprintf(v.out, "Report saved to %s\n", path)
	}

	if v.store != nil {
		if err := v.store.SaveReport(ctx, r); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record run %s: %v\n", r.RunID, err)
		}
	}

	if v.artifacts != nil {
		url, err := artifact.UploadReport(ctx, v.artifacts, r, v.format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to upload report: %v\n", err)
			return nil
		}
		fmt.Fprintf(v.out, "Report uploaded to %s\n", url)
		if v.store != nil {
			if err := v.store.SetArtifactURL(ctx, r.RunID, url); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to record artifact for run %s: %v\n", r.RunID, err)
			}
		}
	}
	return nil
}
