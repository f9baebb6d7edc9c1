package validation

import (
	"context"
	"errors"
	"time"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/prompt"
	"github.com/ShayCichocki/finval/pkg/models"
)

// Validator validates document text for one statement type.
type Validator interface {
	Kind() models.AgentKind
	Validate(ctx context.Context, documentText string) (*models.ValidationResult, error)
}

// Agent is the generic Validator driven by a Profile.
type Agent struct {
	profile     Profile
	client      api.Completer
	temperature float64
	now         func() time.Time
	sendMeta    bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithTemperature sets the sampling temperature for both completion calls.
func WithTemperature(t float64) Option {
	return func(a *Agent) {
		a.temperature = t
	}
}

// WithClock overrides the time source used for ProducedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithMetaSystemPrompt prepends the agent's meta prompt to the domain prompt.
func WithMetaSystemPrompt(enabled bool) Option {
	return func(a *Agent) {
		a.sendMeta = enabled
	}
}

// WithReflection overrides the profile's two-pass review flag.
func WithReflection(enabled bool) Option {
	return func(a *Agent) {
		a.profile.Reflect = enabled
	}
}

// NewAgent creates an agent for profile that calls client.
func NewAgent(profile Profile, client api.Completer, opts ...Option) *Agent {
	a := &Agent{
		profile:     profile,
		client:      client,
		temperature: api.DefaultTemperature,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind returns the statement type this agent validates.
func (a *Agent) Kind() models.AgentKind {
	return a.profile.Kind
}

// Profile returns a copy of the agent's profile.
func (a *Agent) Profile() Profile {
	return a.profile
}

// MetaPrompt returns the meta prompt describing this agent's validation task.
func (a *Agent) MetaPrompt() string {
	return prompt.BuildMetaPrompt(a.profile.Label, a.profile.TaskDescription, a.profile.Criteria)
}

// DomainPrompt returns the prompt sent on the first completion call.
func (a *Agent) DomainPrompt(documentText string) string {
	p := prompt.BuildDomainPrompt(a.profile.Kind, documentText, a.profile.Criteria)
	if a.sendMeta {
		p = a.MetaPrompt() + "\n\n" + p
	}
	return p
}

// Validate analyses documentText and scores the final analysis.
// Completion failures are returned as *api.CompletionError.
func (a *Agent) Validate(ctx context.Context, documentText string) (*models.ValidationResult, error) {
	initial, err := a.complete(ctx, a.DomainPrompt(documentText))
	if err != nil {
		return nil, err
	}

	result := &models.ValidationResult{
		AgentKind:  a.profile.Kind,
		AgentLabel: a.profile.Kind.Label(),
	}

	if a.profile.Reflect {
		refined, err := a.complete(ctx, prompt.BuildReflectionPrompt(initial))
		if err != nil {
			return nil, err
		}
		result.InitialAnalysis = initial
		result.RefinedAnalysis = refined
		result.ComplianceScore = Score(refined)
	} else {
		result.Analysis = initial
		result.ComplianceScore = Score(initial)
	}

	result.ProducedAt = a.now()
	return result, nil
}

func (a *Agent) complete(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := a.client.Complete(ctx, p, a.temperature)
	if err == nil {
		return text, nil
	}

	var ce *api.CompletionError
	if errors.As(err, &ce) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	return "", &api.CompletionError{Cause: err}
}
