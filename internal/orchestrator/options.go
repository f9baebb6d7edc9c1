package orchestrator

import (
	"time"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/validation"
	"github.com/ShayCichocki/finval/pkg/models"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
type RequiredConfig struct {
	// Client is the completion client threaded into every agent.
	Client api.Completer
}

// AgentFactory builds the validator for kind. It is called once per enabled
// kind on every run.
type AgentFactory func(kind models.AgentKind, client api.Completer) (validation.Validator, error)

// Progress is reported after each agent finishes.
type Progress struct {
	// Completed is the number of agents processed so far, including this one.
	Completed int
	// Total is the number of agents enabled for the run.
	Total int
	// Kind is the agent that just finished.
	Kind models.AgentKind
	// Err is non-nil when the agent failed.
	Err error
}

// Fraction returns Completed/Total.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	concurrency int
	progress    ProgressFunc
	emitter     *EventEmitter
	logger      *DebugLogger
	now         func() time.Time
	factory     AgentFactory
	agentOpts   []validation.Option
	newRunID    func() string
}

// WithConcurrency runs up to n agents at once. Values below 2 keep the
// default sequential mode.
func WithConcurrency(n int) Option {
	return func(o *orchestratorOptions) { o.concurrency = n }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *orchestratorOptions) { o.progress = fn }
}

// WithEventEmitter publishes run events on e.
func WithEventEmitter(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.emitter = e }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithClock overrides the time source for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}

// WithAgentFactory replaces the default profile-based agent construction.
func WithAgentFactory(f AgentFactory) Option {
	return func(o *orchestratorOptions) { o.factory = f }
}

// WithAgentOptions passes options to every agent built by the default factory.
func WithAgentOptions(opts ...validation.Option) Option {
	return func(o *orchestratorOptions) { o.agentOpts = append(o.agentOpts, opts...) }
}

// WithRunIDGenerator overrides run ID generation (mainly for testing).
func WithRunIDGenerator(fn func() string) Option {
	return func(o *orchestratorOptions) { o.newRunID = fn }
}

// DefaultAgentFactory builds agents from the built-in profiles.
func DefaultAgentFactory(opts ...validation.Option) AgentFactory {
	return func(kind models.AgentKind, client api.Completer) (validation.Validator, error) {
		profile, err := validation.DefaultProfile(kind)
		if err != nil {
			return nil, err
		}
		return validation.NewAgent(profile, client, opts...), nil
	}
}
