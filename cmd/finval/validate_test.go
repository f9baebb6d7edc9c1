package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/artifact"
	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/internal/state"
	"github.com/ShayCichocki/finval/pkg/models"
)

func fixedCompleter(calls *atomic.Int32, reply string) api.Completer {
	return api.CompleterFunc(func(ctx context.Context, prompt string, temperature float64) (string, error) {
		calls.Add(1)
		return reply, nil
	})
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statements.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func openTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.OpenStore(filepath.Join(t.TempDir(), "finval.db"), 4)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSelectAgents(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.Agents = []string{"notes", "bs"}

	got, err := selectAgents(cfg, nil)
	if err != nil {
		t.Fatalf("selectAgents: %v", err)
	}
	want := []models.AgentKind{models.AgentBalanceSheet, models.AgentNotes}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("from config = %v, want %v", got, want)
	}

	got, err = selectAgents(cfg, []string{"cf", "pl", "cash_flow"})
	if err != nil {
		t.Fatalf("selectAgents: %v", err)
	}
	want = []models.AgentKind{models.AgentProfitLoss, models.AgentCashFlow}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("from flag = %v, want %v", got, want)
	}

	if _, err := selectAgents(cfg, []string{"equity"}); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestReportFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Format = "yaml"

	if f, err := reportFormat(cfg, ""); err != nil || f != report.FormatYAML {
		t.Errorf("config format = %q, %v", f, err)
	}
	if f, err := reportFormat(cfg, "json"); err != nil || f != report.FormatJSON {
		t.Errorf("flag format = %q, %v", f, err)
	}
	if _, err := reportFormat(cfg, "xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestValidateRun_Once(t *testing.T) {
	var calls atomic.Int32
	store := openTestStore(t)
	artifacts := artifact.NewMemoryStore("reports")
	outDir := t.TempDir()
	var out bytes.Buffer

	run := &validateRun{
		path:      writeDocument(t, "Statement of Cash Flows for the year ended 31 March 2025"),
		kinds:     []models.AgentKind{models.AgentCashFlow, models.AgentBalanceSheet},
		client:    fixedCompleter(&calls, "Disclosures are compliant."),
		store:     store,
		artifacts: artifacts,
		format:    report.FormatJSON,
		outDir:    outDir,
		export:    true,
		preview:   true,
		out:       &out,
	}

	r, err := run.once(context.Background())
	if err != nil {
		t.Fatalf("once: %v", err)
	}

	// Balance Sheet makes two calls, Cash Flow one.
	if got := calls.Load(); got != 3 {
		t.Errorf("completion calls = %d, want 3", got)
	}
	if r.DocumentName != "statements.txt" {
		t.Errorf("DocumentName = %q", r.DocumentName)
	}
	if len(r.Results) != 2 || r.AggregateScore != 60 {
		t.Errorf("report = %d results, aggregate %.1f", len(r.Results), r.AggregateScore)
	}

	text := out.String()
	for _, want := range []string{"Document Preview", "Statement of Cash Flows", "[2/2]", "Overall Compliance:  60.0%", "Report saved to"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	files, _ := filepath.Glob(filepath.Join(outDir, "validation_report_*.json"))
	if len(files) != 1 {
		t.Errorf("report files = %v, want one", files)
	}

	stored, err := store.GetReport(context.Background(), r.RunID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if stored.IssueCount != 2 {
		t.Errorf("stored IssueCount = %d, want 2", stored.IssueCount)
	}
	if artifacts.Len() != 1 {
		t.Errorf("artifacts = %d, want 1", artifacts.Len())
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || !strings.HasPrefix(runs[0].ArtifactURL, "mem://reports/") {
		t.Errorf("runs = %+v", runs)
	}
}

func TestValidateRun_NoExport(t *testing.T) {
	var calls atomic.Int32
	outDir := t.TempDir()
	run := &validateRun{
		path:   writeDocument(t, "Notes to accounts"),
		kinds:  []models.AgentKind{models.AgentNotes},
		client: fixedCompleter(&calls, "The statement is compliant."),
		format: report.FormatJSON,
		outDir: outDir,
		out:    &bytes.Buffer{},
	}

	if _, err := run.once(context.Background()); err != nil {
		t.Fatalf("once: %v", err)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("report written despite export disabled: %v", entries)
	}
}

func TestValidateRun_MissingDocument(t *testing.T) {
	var calls atomic.Int32
	run := &validateRun{
		path:   filepath.Join(t.TempDir(), "missing.pdf"),
		kinds:  models.AllAgentKinds(),
		client: fixedCompleter(&calls, "unused"),
		out:    &bytes.Buffer{},
	}

	if _, err := run.once(context.Background()); err == nil {
		t.Fatal("expected extraction error")
	}
	if calls.Load() != 0 {
		t.Errorf("completion called %d times for a missing document", calls.Load())
	}
}

func TestValidateRun_NoAgents(t *testing.T) {
	var calls atomic.Int32
	run := &validateRun{
		path:   writeDocument(t, "Balance Sheet"),
		client: fixedCompleter(&calls, "unused"),
		out:    &bytes.Buffer{},
	}

	if _, err := run.once(context.Background()); err == nil {
		t.Fatal("expected configuration error with no agents")
	}
	if calls.Load() != 0 {
		t.Errorf("completion called %d times", calls.Load())
	}
}
