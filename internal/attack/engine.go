package attack

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sherifkozman/red-council/internal/campaign"
	"github.com/sherifkozman/red-council/internal/llm"
	"github.com/sherifkozman/red-council/internal/template"
	"github.com/sherifkozman/red-council/internal/types"
)

// Engine drives attacks against a target provider. It implements both
// campaign.TemplateResolver and campaign.Executor so a runner can resolve a
// template and then execute its prompt through one component.
//
// The campaign runner executes strictly one attack at a time, so the engine
// remembers the template it last resolved and uses that template's success
// indicators to classify the following Execute call. An Engine must not be
// shared between concurrently running campaigns.
type Engine struct {
	registry template.Registry
	provider llm.Provider
	matcher  *Matcher
	limiter  *rate.Limiter
	logger   *slog.Logger

	temperature float64
	maxTokens   int

	mu      sync.Mutex
	current *template.Template
}

var (
	_ campaign.TemplateResolver = (*Engine)(nil)
	_ campaign.Executor         = (*Engine)(nil)
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRateLimit bounds provider calls to maxPerSecond with the given burst.
func WithRateLimit(maxPerSecond float64, burst int) EngineOption {
	return func(e *Engine) {
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(maxPerSecond), burst)
	}
}

// WithEngineLogger sets the logger used for attack calls.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSampling sets the temperature and max token budget for provider calls.
func WithSampling(temperature float64, maxTokens int) EngineOption {
	return func(e *Engine) {
		e.temperature = temperature
		e.maxTokens = maxTokens
	}
}

// NewEngine creates an attack engine over the given registry and provider.
func NewEngine(registry template.Registry, provider llm.Provider, opts ...EngineOption) (*Engine, error) {
	if registry == nil {
		return nil, types.NewError(types.TEMPLATE_INVALID, "attack engine requires a template registry")
	}
	if provider == nil {
		return nil, types.NewError(types.LLM_UNKNOWN_PROVIDER, "attack engine requires a provider")
	}
	e := &Engine{
		registry: registry,
		provider: provider,
		matcher:  NewMatcher(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Resolve looks up a template by id. Unknown and disabled templates return
// nil with no error so the campaign records them as skipped.
func (e *Engine) Resolve(ctx context.Context, id string) (*campaign.ResolvedTemplate, error) {
	tmpl, err := e.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil || !tmpl.Enabled {
		e.setCurrent(nil)
		return nil, nil
	}
	e.setCurrent(tmpl)
	return &campaign.ResolvedTemplate{ID: tmpl.ID, Prompt: tmpl.Prompt}, nil
}

// Execute sends the prompt to the target provider and classifies the response
// with the indicators of the template resolved immediately before this call.
func (e *Engine) Execute(ctx context.Context, prompt string) (*campaign.Outcome, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, types.WrapError(types.LLM_REQUEST_FAILED, "rate limiter interrupted", err)
		}
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	tmpl := e.takeCurrent()
	var indicators []template.Indicator
	templateID := ""
	if tmpl != nil {
		indicators = tmpl.Indicators
		templateID = tmpl.ID
	}

	success, confidence, err := e.matcher.Match(resp.Content, indicators)
	if err != nil {
		// A broken indicator pattern means we cannot claim success.
		e.logger.Warn("indicator evaluation failed",
			"template_id", templateID,
			"error", err)
		success = false
		confidence = 0
	}

	e.logger.Debug("attack executed",
		"template_id", templateID,
		"provider", e.provider.Name(),
		"success", success,
		"confidence", confidence)

	return &campaign.Outcome{Response: resp.Content, Success: success}, nil
}

func (e *Engine) setCurrent(tmpl *template.Template) {
	e.mu.Lock()
	e.current = tmpl
	e.mu.Unlock()
}

func (e *Engine) takeCurrent() *template.Template {
	e.mu.Lock()
	defer e.mu.Unlock()
	tmpl := e.current
	e.current = nil
	return tmpl
}
