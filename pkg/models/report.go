package models

import (
	"sort"
	"time"
)

// ValidationReport is the terminal output of one validation run.
// Build it with NewReport; it is not meant to be modified afterwards.
type ValidationReport struct {
	RunID          string             `json:"run_id" yaml:"run_id"`
	DocumentName   string             `json:"document_name,omitempty" yaml:"document_name,omitempty"`
	Results        []ValidationResult `json:"results" yaml:"results"`
	Failures       []AgentFailure     `json:"failures,omitempty" yaml:"failures,omitempty"`
	AggregateScore float64            `json:"aggregate_score" yaml:"aggregate_score"`
	IssueCount     int                `json:"issue_count" yaml:"issue_count"`
	StartedAt      time.Time          `json:"started_at" yaml:"started_at"`
	CompletedAt    time.Time          `json:"completed_at" yaml:"completed_at"`
}

// ReportMeta carries the run-level fields of a report.
type ReportMeta struct {
	RunID        string
	DocumentName string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// NewReport derives a report from collected results and failures.
// Results and failures are copied and sorted into canonical agent order.
// The aggregate score is the mean of all result scores, or 0 when there are
// no results.
func NewReport(meta ReportMeta, results []ValidationResult, failures []AgentFailure) *ValidationReport {
	rs := append([]ValidationResult(nil), results...)
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].AgentKind.Order() < rs[j].AgentKind.Order()
	})

	fs := append([]AgentFailure(nil), failures...)
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].AgentKind.Order() < fs[j].AgentKind.Order()
	})

	total := 0
	issues := 0
	for _, r := range rs {
		total += r.ComplianceScore
		if r.ComplianceScore < IssueThreshold {
			issues++
		}
	}

	var aggregate float64
	if len(rs) > 0 {
		aggregate = float64(total) / float64(len(rs))
	}

	if rs == nil {
		rs = []ValidationResult{}
	}

	return &ValidationReport{
		RunID:          meta.RunID,
		DocumentName:   meta.DocumentName,
		Results:        rs,
		Failures:       fs,
		AggregateScore: aggregate,
		IssueCount:     issues,
		StartedAt:      meta.StartedAt,
		CompletedAt:    meta.CompletedAt,
	}
}

// AgentsUsed returns the number of agents that produced a result.
func (r *ValidationReport) AgentsUsed() int {
	return len(r.Results)
}

// Result returns the result for kind, if present.
func (r *ValidationReport) Result(kind AgentKind) (*ValidationResult, bool) {
	for i := range r.Results {
		if r.Results[i].AgentKind == kind {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// Duration returns how long the run took.
func (r *ValidationReport) Duration() time.Duration {
	if r.CompletedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
