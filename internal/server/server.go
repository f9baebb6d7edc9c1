// Package server exposes validation runs and run history over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ShayCichocki/finval/internal/artifact"
	"github.com/ShayCichocki/finval/internal/extract"
	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/internal/state"
	"github.com/ShayCichocki/finval/internal/version"
	"github.com/ShayCichocki/finval/pkg/models"
)

// DefaultMaxUploadBytes caps decoded document uploads.
const DefaultMaxUploadBytes = 20 << 20

// Runner executes one validation run.
type Runner interface {
	Run(ctx context.Context, req models.ValidationRequest) (*models.ValidationReport, error)
}

// RunnerFactory builds a Runner for a single request. The stream endpoint
// passes an event emitter through opts.
type RunnerFactory func(opts ...orchestrator.Option) (Runner, error)

// Config for the HTTP API handler.
type Config struct {
	NewRunner RunnerFactory
	// Store persists finished runs. Optional.
	Store state.RunStore
	// Artifacts receives exported reports. Optional.
	Artifacts      artifact.Store
	ArtifactFormat report.Format
	Extractor      extract.Extractor
	DefaultAgents  []models.AgentKind
	MaxUploadBytes int64
	BasePath       string
	Auth           AuthConfig
	Logger         *log.Logger
}

// Server holds the dependencies shared by the handlers.
type Server struct {
	cfg    Config
	logger *log.Logger
}

// New returns an HTTP handler exposing the finval API.
func New(cfg Config) (http.Handler, error) {
	if cfg.NewRunner == nil {
		return nil, fmt.Errorf("server: runner factory is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	cfg.BasePath = basePath
	if cfg.Extractor == nil {
		cfg.Extractor = extract.FileExtractor{}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ArtifactFormat == "" {
		cfg.ArtifactFormat = report.FormatJSON
	}
	if len(cfg.DefaultAgents) == 0 {
		cfg.DefaultAgents = models.AllAgentKinds()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	huma.DefaultArrayNullable = false
	// Override Huma errors to use the JSON envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("finval API", version.Get())
	hcfg.OpenAPIPath = basePath + "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, s)
	registerValidations(group, s)
	registerRuns(group, s)
	router.Get(basePath+"/validations/stream", s.handleStream)

	return router, nil
}

func registerHealth(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: HealthResponse{Status: "ok", Version: version.Get(), Storage: s.cfg.Store != nil}}, nil
	})
}

func registerValidations(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-validation",
		Method:        http.MethodPost,
		Path:          "/validations",
		Summary:       "Validate a financial statement",
		DefaultStatus: http.StatusCreated,
		// Base64 inflates uploads by a third.
		MaxBodyBytes: s.cfg.MaxUploadBytes*4/3 + 4096,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusRequestEntityTooLarge,
			http.StatusUnsupportedMediaType,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ValidateRequest `json:"body"`
	}) (*struct {
		Body ValidateResponse `json:"body"`
	}, error) {
		req, err := s.prepare(input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		r, url, err := s.execute(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ValidateResponse `json:"body"`
		}{Body: ValidateResponse{Report: r, ArtifactURL: url}}, nil
	})
}

func registerRuns(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List stored runs",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" default:"20" doc:"Maximum runs to return; 0 returns all"`
	}) (*struct {
		Body RunListResponse `json:"body"`
	}, error) {
		store, err := s.store()
		if err != nil {
			return nil, err
		}
		runs, err := store.ListRuns(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunListResponse `json:"body"`
		}{Body: RunListResponse{Runs: runs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get a stored report",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct {
		Body *models.ValidationReport `json:"body"`
	}, error) {
		store, err := s.store()
		if err != nil {
			return nil, err
		}
		r, err := store.GetReport(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body *models.ValidationReport `json:"body"`
		}{Body: r}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-run",
		Method:        http.MethodDelete,
		Path:          "/runs/{run_id}",
		Summary:       "Delete a stored run",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct{}, error) {
		store, err := s.store()
		if err != nil {
			return nil, err
		}
		if err := store.DeleteRun(ctx, input.RunID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func (s *Server) store() (state.RunStore, error) {
	if s.cfg.Store == nil {
		return nil, newAPIError(http.StatusNotFound, "storage_disabled", "run history is not enabled", nil)
	}
	return s.cfg.Store, nil
}

// prepare turns an API request into a validation request, extracting text
// from uploaded documents.
func (s *Server) prepare(in ValidateRequest) (models.ValidationRequest, error) {
	req := models.ValidationRequest{
		DocumentText: in.Text,
		DocumentName: strings.TrimSpace(in.DocumentName),
	}

	if len(in.Content) > 0 {
		if int64(len(in.Content)) > s.cfg.MaxUploadBytes {
			return req, newAPIError(http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("document exceeds %d bytes", s.cfg.MaxUploadBytes), nil)
		}
		if strings.TrimSpace(in.Filename) == "" {
			return req, newAPIError(http.StatusBadRequest, "bad_request", "filename is required with content", nil)
		}
		text, err := s.cfg.Extractor.Extract(in.Filename, in.Content)
		if err != nil {
			return req, err
		}
		req.DocumentText = text
		if req.DocumentName == "" {
			req.DocumentName = in.Filename
		}
	}

	if len(in.Agents) == 0 {
		req.EnabledAgents = append([]models.AgentKind(nil), s.cfg.DefaultAgents...)
		return req, nil
	}
	for _, name := range in.Agents {
		kind, err := models.ParseAgentKind(name)
		if err != nil {
			return req, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"agent": name})
		}
		req.EnabledAgents = append(req.EnabledAgents, kind)
	}
	return req, nil
}

// execute runs the orchestrator and persists the result. Storage and upload
// failures are logged and do not fail the request.
func (s *Server) execute(ctx context.Context, req models.ValidationRequest, opts ...orchestrator.Option) (*models.ValidationReport, string, error) {
	runner, err := s.cfg.NewRunner(opts...)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	r, err := runner.Run(ctx, req)
	if err != nil {
		return nil, "", err
	}
	s.logger.Printf("[server] run %s: %d results, %d failures, aggregate %.1f%% in %s",
		r.RunID, len(r.Results), len(r.Failures), r.AggregateScore, time.Since(start).Round(time.Millisecond))

	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveReport(ctx, r); err != nil {
			s.logger.Printf("[server] WARNING: failed to save run %s: %v", r.RunID, err)
		}
	}

	var url string
	if s.cfg.Artifacts != nil {
		url, err = artifact.UploadReport(ctx, s.cfg.Artifacts, r, s.cfg.ArtifactFormat)
		if err != nil {
			s.logger.Printf("[server] WARNING: failed to upload report for run %s: %v", r.RunID, err)
			url = ""
		} else if s.cfg.Store != nil {
			if err := s.cfg.Store.SetArtifactURL(ctx, r.RunID, url); err != nil {
				s.logger.Printf("[server] WARNING: failed to record artifact for run %s: %v", r.RunID, err)
			}
		}
	}
	return r, url, nil
}
