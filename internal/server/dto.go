package server

import (
	"github.com/ShayCichocki/finval/internal/state"
	"github.com/ShayCichocki/finval/pkg/models"
)

// ValidateRequest starts a validation run. Either Text or Content must be
// given; Content is the base64-encoded document and needs a Filename so its
// format can be detected.
type ValidateRequest struct {
	Text         string   `json:"text,omitempty" doc:"Extracted statement text" example:"Balance Sheet as at 31 March 2025"`
	Content      []byte   `json:"content,omitempty" doc:"Base64-encoded PDF or text document"`
	Filename     string   `json:"filename,omitempty" doc:"Original file name, used to detect the format" example:"fy25.pdf"`
	DocumentName string   `json:"document_name,omitempty" doc:"Label stored with the run"`
	Agents       []string `json:"agents,omitempty" doc:"Agents to run; defaults to the server's configured set"`
}

// ValidateResponse is the outcome of a validation run.
type ValidateResponse struct {
	Report      *models.ValidationReport `json:"report"`
	ArtifactURL string                   `json:"artifact_url,omitempty"`
}

// RunListResponse lists stored runs, newest first.
type RunListResponse struct {
	Runs []state.RunSummary `json:"runs"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
	Storage bool   `json:"storage"`
}

// streamMessage is one websocket frame on the stream endpoint.
type streamMessage struct {
	Type        string                   `json:"type"`
	Event       any                      `json:"event,omitempty"`
	Report      *models.ValidationReport `json:"report,omitempty"`
	ArtifactURL string                   `json:"artifact_url,omitempty"`
	Code        string                   `json:"code,omitempty"`
	Message     string                   `json:"message,omitempty"`
}

const (
	streamTypeEvent  = "event"
	streamTypeReport = "report"
	streamTypeError  = "error"
)
