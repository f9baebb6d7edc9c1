package orchestrator

import (
	"time"

	"github.com/ShayCichocki/finval/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventRunStarted indicates a validation run has started.
	EventRunStarted EventType = "run_started"
	// EventAgentStarted indicates an agent began validating.
	EventAgentStarted EventType = "agent_started"
	// EventAgentCompleted indicates an agent produced a result.
	EventAgentCompleted EventType = "agent_completed"
	// EventAgentFailed indicates an agent failed and was isolated.
	EventAgentFailed EventType = "agent_failed"
	// EventRunCompleted indicates the report has been built.
	EventRunCompleted EventType = "run_completed"
)

// OrchestratorEvent represents an event emitted during a run.
// These events drive the progress UI and the streaming HTTP endpoint.
type OrchestratorEvent struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// Agent is the related agent, if applicable.
	Agent models.AgentKind `json:"agent,omitempty"`
	// Completed and Total report progress for agent events.
	Completed int `json:"completed"`
	Total     int `json:"total"`
	// Score is the compliance score for agent_completed events.
	Score int `json:"score,omitempty"`
	// AggregateScore is set on run_completed.
	AggregateScore float64 `json:"aggregate_score,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Error contains error details for failure events.
	Error string `json:"error,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Fraction returns Completed/Total, or 0 when Total is 0.
func (e OrchestratorEvent) Fraction() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Completed) / float64(e.Total)
}
