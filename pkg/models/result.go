package models

import "time"

// Criterion names one disclosure or compliance check.
type Criterion string

// IssueThreshold is the score below which a result counts as an issue.
const IssueThreshold = 80

// ValidationRequest is the input to one orchestrated validation run.
type ValidationRequest struct {
	// DocumentText is the extracted statement text. Empty text is valid input.
	DocumentText string `json:"document_text"`
	// EnabledAgents selects which agents run. Order and duplicates are ignored.
	EnabledAgents []AgentKind `json:"enabled_agents"`
	// DocumentName is an optional label for the source document.
	DocumentName string `json:"document_name,omitempty"`
}

// ValidationResult is the output of a single agent invocation.
// Single-pass agents fill Analysis; two-pass agents fill InitialAnalysis and
// RefinedAnalysis instead.
type ValidationResult struct {
	AgentKind       AgentKind `json:"agent" yaml:"agent"`
	AgentLabel      string    `json:"agent_label" yaml:"agent_label"`
	Analysis        string    `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	InitialAnalysis string    `json:"initial_analysis,omitempty" yaml:"initial_analysis,omitempty"`
	RefinedAnalysis string    `json:"refined_analysis,omitempty" yaml:"refined_analysis,omitempty"`
	ComplianceScore int       `json:"compliance_score" yaml:"compliance_score"`
	ProducedAt      time.Time `json:"timestamp" yaml:"timestamp"`
}

// Refined reports whether the result went through a self-reflection pass.
func (r *ValidationResult) Refined() bool {
	return r.RefinedAnalysis != "" || r.InitialAnalysis != ""
}

// FinalAnalysis returns the text the score was computed from.
func (r *ValidationResult) FinalAnalysis() string {
	if r.Refined() {
		return r.RefinedAnalysis
	}
	return r.Analysis
}

// Band returns the compliance band for the result's score.
func (r *ValidationResult) Band() ComplianceBand {
	return BandFor(r.ComplianceScore)
}

// AgentFailure records an agent invocation that failed and was isolated.
type AgentFailure struct {
	AgentKind  AgentKind `json:"agent" yaml:"agent"`
	AgentLabel string    `json:"agent_label" yaml:"agent_label"`
	Reason     string    `json:"reason" yaml:"reason"`
	FailedAt   time.Time `json:"timestamp" yaml:"timestamp"`
}

// ComplianceBand buckets a compliance score for presentation.
type ComplianceBand string

const (
	// BandGood is a score of 80 or higher.
	BandGood ComplianceBand = "good"
	// BandModerate is a score from 60 to 79.
	BandModerate ComplianceBand = "moderate"
	// BandPoor is a score below 60.
	BandPoor ComplianceBand = "poor"
)

// BandFor maps a score to its band.
func BandFor(score int) ComplianceBand {
	switch {
	case score >= IssueThreshold:
		return BandGood
	case score >= 60:
		return BandModerate
	default:
		return BandPoor
	}
}

// Title returns the headline used when rendering the band.
func (b ComplianceBand) Title() string {
	switch b {
	case BandGood:
		return "Good Compliance"
	case BandModerate:
		return "Moderate Compliance"
	default:
		return "Poor Compliance"
	}
}
