package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ShayCichocki/finval/pkg/models"
)

// Presenter renders reports for a terminal.
type Presenter struct {
	w io.Writer
	// Full prints every analysis text instead of a one-line summary.
	Full bool
}

// NewPresenter creates a presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

var (
	goodColor     = color.New(color.FgGreen, color.Bold)
	moderateColor = color.New(color.FgYellow, color.Bold)
	poorColor     = color.New(color.FgRed, color.Bold)
	headingColor  = color.New(color.FgCyan, color.Bold)
	dimColor      = color.New(color.Faint)
)

// BandLine returns the coloured compliance verdict for a score.
func BandLine(score int) string {
	band := models.BandFor(score)
	switch band {
	case models.BandGood:
		return goodColor.Sprintf("✓ %s: %d%%", band.Title(), score)
	case models.BandModerate:
		return moderateColor.Sprintf("! %s: %d%%", band.Title(), score)
	default:
		return poorColor.Sprintf("✗ %s: %d%%", band.Title(), score)
	}
}

// Render writes the dashboard, per-agent analyses and failures.
func (p *Presenter) Render(r *models.ValidationReport) {
	p.Dashboard(r)
	fmt.Fprintln(p.w)

	for i := range r.Results {
		p.result(&r.Results[i])
	}

	for _, f := range r.Failures {
		poorColor.Fprintf(p.w, "Error in %s validation: %s\n", f.AgentLabel, f.Reason)
	}
}

// Dashboard writes the summary metrics and the per-agent score table.
func (p *Presenter) Dashboard(r *models.ValidationReport) {
	headingColor.Fprintln(p.w, "Validation Dashboard")
	if r.DocumentName != "" {
		fmt.Fprintf(p.w, "Document:            %s\n", r.DocumentName)
	}
	fmt.Fprintf(p.w, "Overall Compliance:  %.1f%%\n", r.AggregateScore)
	fmt.Fprintf(p.w, "Agents Used:         %d\n", r.AgentsUsed())
	fmt.Fprintf(p.w, "Issues Found:        %d\n", r.IssueCount)
	if d := r.Duration(); d > 0 {
		dimColor.Fprintf(p.w, "Completed in %s (run %s)\n", d.Round(time.Millisecond), r.RunID)
	}

	if len(r.Results) == 0 && len(r.Failures) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(p.w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Agent", "Score", "Assessment", "Passes"})
	for _, res := range r.Results {
		passes := "1"
		if res.Refined() {
			passes = "2"
		}
		tw.AppendRow(table.Row{res.AgentLabel, fmt.Sprintf("%d%%", res.ComplianceScore), res.Band().Title(), passes})
	}
	for _, f := range r.Failures {
		tw.AppendRow(table.Row{f.AgentLabel, "-", "Failed", "-"})
	}
	tw.AppendFooter(table.Row{"Overall", fmt.Sprintf("%.1f%%", r.AggregateScore), fmt.Sprintf("%d issue(s)", r.IssueCount), ""})
	tw.Render()
}

func (p *Presenter) result(res *models.ValidationResult) {
	headingColor.Fprintf(p.w, "%s Analysis (Score: %d%%)\n", res.AgentLabel, res.ComplianceScore)

	if res.Refined() {
		fmt.Fprintln(p.w, "Initial Analysis")
		fmt.Fprintln(p.w, p.body(res.InitialAnalysis))
		fmt.Fprintln(p.w, "Refined Analysis (After Self-Reflection)")
		fmt.Fprintln(p.w, p.body(res.RefinedAnalysis))
	} else {
		fmt.Fprintln(p.w, p.body(res.Analysis))
	}

	fmt.Fprintln(p.w, BandLine(res.ComplianceScore))
	fmt.Fprintln(p.w)
}

func (p *Presenter) body(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return dimColor.Sprint("N/A")
	}
	if p.Full {
		return text
	}
	first, _, cut := strings.Cut(text, "\n")
	if cut {
		return first + dimColor.Sprint(" ... (use --full to show everything)")
	}
	return first
}
