package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/finval/pkg/models"
)

func init() {
	color.NoColor = true
}

func sampleReport() *models.ValidationReport {
	at := time.Date(2025, 5, 2, 14, 30, 5, 0, time.UTC)
	return models.NewReport(models.ReportMeta{
		RunID:        "3f1c",
		DocumentName: "acme-fy25.pdf",
		StartedAt:    at,
		CompletedAt:  at.Add(12 * time.Second),
	}, []models.ValidationResult{
		{
			AgentKind:       models.AgentBalanceSheet,
			AgentLabel:      "Balance Sheet",
			InitialAnalysis: "Share capital note missing.",
			RefinedAnalysis: "Share capital note missing; PPE disclosures adequate.",
			ComplianceScore: 45,
			ProducedAt:      at.Add(5 * time.Second),
		},
		{
			AgentKind:       models.AgentNotes,
			AgentLabel:      "Notes",
			Analysis:        "Accounting policies are compliant.\nSubsequent events disclosed.",
			ComplianceScore: 90,
			ProducedAt:      at.Add(9 * time.Second),
		},
	}, []models.AgentFailure{
		{AgentKind: models.AgentCashFlow, AgentLabel: "Cash Flow", Reason: "quota exceeded", FailedAt: at},
	})
}

func TestWriteRead_RoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			want := sampleReport()

			var buf bytes.Buffer
			if err := Write(&buf, want, f); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buf, f)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}

			if got.RunID != want.RunID || got.AggregateScore != want.AggregateScore || got.IssueCount != want.IssueCount {
				t.Errorf("header mismatch: got %+v", got)
			}
			if len(got.Results) != 2 || len(got.Failures) != 1 {
				t.Fatalf("results=%d failures=%d", len(got.Results), len(got.Failures))
			}
			for i := range want.Results {
				w, g := want.Results[i], got.Results[i]
				if g.AgentKind != w.AgentKind || g.ComplianceScore != w.ComplianceScore ||
					g.Analysis != w.Analysis || g.InitialAnalysis != w.InitialAnalysis ||
					g.RefinedAnalysis != w.RefinedAnalysis || !g.ProducedAt.Equal(w.ProducedAt) {
					t.Errorf("result %d mismatch:\n got %+v\nwant %+v", i, g, w)
				}
			}
		})
	}
}

func TestWrite_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, field := range []string{`"agent": "balance_sheet"`, `"compliance_score": 45`, `"initial_analysis"`, `"refined_analysis"`, `"timestamp"`, `"aggregate_score": 67.5`} {
		if !strings.Contains(out, field) {
			t.Errorf("JSON export missing %s", field)
		}
	}
}

func TestRead_EmptyResults(t *testing.T) {
	r, err := Read(strings.NewReader(`{"run_id":"x","aggregate_score":0}`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if r.Results == nil {
		t.Error("Results should be an empty slice")
	}
}

func TestDefaultFileName(t *testing.T) {
	at := time.Date(2025, 1, 9, 7, 5, 3, 0, time.UTC)
	if got := DefaultFileName(at, FormatJSON); got != "validation_report_20250109_070503.json" {
		t.Errorf("DefaultFileName = %q", got)
	}
	if got := DefaultFileName(at, FormatYAML); got != "validation_report_20250109_070503.yaml" {
		t.Errorf("DefaultFileName = %q", got)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	at := time.Date(2025, 1, 9, 7, 5, 3, 0, time.UTC)

	path, err := SaveFile(dir, sampleReport(), FormatYAML, at)
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if filepath.Base(path) != "validation_report_20250109_070503.yaml" {
		t.Errorf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.DocumentName != "acme-fy25.pdf" {
		t.Errorf("DocumentName = %q", loaded.DocumentName)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, "": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}

func TestPresenter_Render(t *testing.T) {
	var buf bytes.Buffer
	NewPresenter(&buf).Render(sampleReport())
	out := buf.String()

	for _, want := range []string{
		"Overall Compliance:  67.5%",
		"Agents Used:         2",
		"Issues Found:        1",
		"Balance Sheet Analysis (Score: 45%)",
		"Refined Analysis (After Self-Reflection)",
		"Poor Compliance: 45%",
		"Good Compliance: 90%",
		"Error in Cash Flow validation: quota exceeded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Subsequent events disclosed.") {
		t.Error("summary mode should only show the first line of an analysis")
	}
}

func TestPresenter_Full(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(&buf)
	p.Full = true
	p.Render(sampleReport())

	if !strings.Contains(buf.String(), "Subsequent events disclosed.") {
		t.Error("full mode should print the whole analysis")
	}
}

func TestBandLine(t *testing.T) {
	tests := map[int]string{100: "Good Compliance", 80: "Good Compliance", 79: "Moderate Compliance", 60: "Moderate Compliance", 59: "Poor Compliance"}
	for score, want := range tests {
		if got := BandLine(score); !strings.Contains(got, want) {
			t.Errorf("BandLine(%d) = %q, want %q", score, got, want)
		}
	}
}
