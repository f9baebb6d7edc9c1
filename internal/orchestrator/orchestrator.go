package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/validation"
	"github.com/ShayCichocki/finval/pkg/models"
)

// Orchestrator runs validation agents over a document.
// It is safe for concurrent use; every Run builds its own agents.
type Orchestrator struct {
	client      api.Completer
	concurrency int
	progress    ProgressFunc
	emitter     *EventEmitter
	logger      *DebugLogger
	now         func() time.Time
	factory     AgentFactory
	newRunID    func() string
}

// New creates an Orchestrator.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Client == nil {
		return nil, &ConfigError{Field: "client", Reason: "completion client is required"}
	}

	o := &orchestratorOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.now == nil {
		o.now = time.Now
	}
	if o.factory == nil {
		o.factory = DefaultAgentFactory(o.agentOpts...)
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	if o.newRunID == nil {
		o.newRunID = func() string { return uuid.New().String() }
	}

	return &Orchestrator{
		client:      req.Client,
		concurrency: o.concurrency,
		progress:    o.progress,
		emitter:     o.emitter,
		logger:      o.logger,
		now:         o.now,
		factory:     o.factory,
		newRunID:    o.newRunID,
	}, nil
}

// outcome is the per-agent slot filled by runAgent.
type outcome struct {
	result  *models.ValidationResult
	failure *models.AgentFailure
	err     error
}

// Run validates req.DocumentText with every enabled agent.
//
// Agent failures never abort the run; they are reported in
// ValidationReport.Failures. The only errors returned are configuration
// errors, detected before any completion call.
func (o *Orchestrator) Run(ctx context.Context, req models.ValidationRequest) (*models.ValidationReport, error) {
	kinds := models.CanonicalKinds(req.EnabledAgents)
	if len(kinds) == 0 {
		return nil, ErrNoAgentsEnabled
	}

	agents := make([]validation.Validator, len(kinds))
	for i, kind := range kinds {
		a, err := o.factory(kind, o.client)
		if err != nil {
			return nil, &ConfigError{Field: "enabled_agents", Reason: fmt.Sprintf("build %s agent: %v", kind, err)}
		}
		agents[i] = a
	}

	runID := o.newRunID()
	started := o.now()
	o.logger.Log("run %s started: %d agents, %d bytes of text", runID, len(agents), len(req.DocumentText))
	o.emit(OrchestratorEvent{Type: EventRunStarted, RunID: runID, Total: len(agents), Message: req.DocumentName})

	tracker := &progressTracker{total: len(agents), fn: o.progress, emit: o.emit, runID: runID}
	outcomes := make([]outcome, len(agents))

	if o.concurrency > 1 {
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i, a := range agents {
			g.Go(func() error {
				outcomes[i] = o.runAgent(ctx, runID, a, req.DocumentText)
				tracker.done(a.Kind(), outcomes[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, a := range agents {
			outcomes[i] = o.runAgent(ctx, runID, a, req.DocumentText)
			tracker.done(a.Kind(), outcomes[i])
		}
	}

	var results []models.ValidationResult
	var failures []models.AgentFailure
	for _, oc := range outcomes {
		if oc.result != nil {
			results = append(results, *oc.result)
		}
		if oc.failure != nil {
			failures = append(failures, *oc.failure)
		}
	}

	report := models.NewReport(models.ReportMeta{
		RunID:        runID,
		DocumentName: req.DocumentName,
		StartedAt:    started,
		CompletedAt:  o.now(),
	}, results, failures)

	o.logger.Log("run %s completed: %d results, %d failures, aggregate %.1f",
		runID, len(report.Results), len(report.Failures), report.AggregateScore)
	o.emit(OrchestratorEvent{
		Type:           EventRunCompleted,
		RunID:          runID,
		Completed:      len(agents),
		Total:          len(agents),
		AggregateScore: report.AggregateScore,
	})

	return report, nil
}

func (o *Orchestrator) runAgent(ctx context.Context, runID string, a validation.Validator, text string) (oc outcome) {
	kind := a.Kind()
	o.emit(OrchestratorEvent{Type: EventAgentStarted, RunID: runID, Agent: kind})
	o.logger.Log("run %s: %s started", runID, kind)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] %s agent panicked: %v", kind, r)
			err := fmt.Errorf("agent panicked: %v", r)
			oc = outcome{failure: o.failure(kind, err), err: err}
		}
	}()

	res, err := a.Validate(ctx, text)
	if err == nil && res == nil {
		err = errors.New("agent returned no result")
	}
	if err != nil {
		o.logger.Log("run %s: %s failed: %v", runID, kind, err)
		return outcome{failure: o.failure(kind, err), err: err}
	}

	o.logger.Log("run %s: %s scored %d", runID, kind, res.ComplianceScore)
	return outcome{result: res}
}

func (o *Orchestrator) failure(kind models.AgentKind, err error) *models.AgentFailure {
	return &models.AgentFailure{
		AgentKind:  kind,
		AgentLabel: kind.Label(),
		Reason:     err.Error(),
		FailedAt:   o.now(),
	}
}

func (o *Orchestrator) emit(e OrchestratorEvent) {
	if o.emitter == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = o.now()
	}
	o.emitter.Emit(e)
}

// progressTracker serializes completion counting so reported counts never
// decrease, whatever order concurrent agents finish in.
type progressTracker struct {
	mu        sync.Mutex
	completed int
	total     int
	runID     string
	fn        ProgressFunc
	emit      func(OrchestratorEvent)
}

func (t *progressTracker) done(kind models.AgentKind, oc outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	p := Progress{Completed: t.completed, Total: t.total, Kind: kind}
	ev := OrchestratorEvent{RunID: t.runID, Agent: kind, Completed: t.completed, Total: t.total}

	if oc.failure != nil {
		p.Err = oc.err
		ev.Type = EventAgentFailed
		ev.Error = oc.failure.Reason
	} else {
		ev.Type = EventAgentCompleted
		ev.Score = oc.result.ComplianceScore
	}

	if t.fn != nil {
		t.fn(p)
	}
	t.emit(ev)
}
