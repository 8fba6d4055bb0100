package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sherifkozman/red-council/internal/types"
)

// langchainProvider implements Provider over any langchaingo model.
type langchainProvider struct {
	name   string
	model  string
	client llms.Model
}

// NewProvider creates a provider from the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderAnthropic:
		return newAnthropicProvider(cfg)
	case ProviderOpenAI:
		return newOpenAIProvider(cfg)
	case ProviderOllama:
		return newOllamaProvider(cfg)
	case ProviderMock:
		return NewMockProvider([]string{"Mock response"}), nil
	default:
		return nil, types.NewError(types.LLM_UNKNOWN_PROVIDER,
			fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}

func newAnthropicProvider(cfg ProviderConfig) (Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, types.NewError(types.LLM_AUTH_FAILED, "anthropic API key not configured")
	}

	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, anthropic.WithModel(cfg.Model))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_REQUEST_FAILED, "failed to create anthropic client", err)
	}
	return &langchainProvider{name: "anthropic", model: cfg.Model, client: client}, nil
}

func newOpenAIProvider(cfg ProviderConfig) (Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, types.NewError(types.LLM_AUTH_FAILED, "openai API key not configured")
	}

	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_REQUEST_FAILED, "failed to create openai client", err)
	}
	return &langchainProvider{name: "openai", model: cfg.Model, client: client}, nil
}

func newOllamaProvider(cfg ProviderConfig) (Provider, error) {
	opts := []ollama.Option{}
	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_REQUEST_FAILED, "failed to create ollama client", err)
	}
	return &langchainProvider{name: "ollama", model: cfg.Model, client: client}, nil
}

// Name returns the provider name.
func (p *langchainProvider) Name() string {
	return p.name
}

// Complete sends a single-prompt completion request.
func (p *langchainProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var callOpts []llms.CallOption
	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	content, err := llms.GenerateFromSinglePrompt(ctx, p.client, req.Prompt, callOpts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_REQUEST_FAILED,
			fmt.Sprintf("%s completion failed", p.name), err)
	}

	return &CompletionResponse{Content: content, Model: p.model}, nil
}

var _ Provider = (*langchainProvider)(nil)
