// Package llm provides a unified abstraction over the LLM services Red
// Council attacks (Anthropic Claude, OpenAI GPT, local Ollama models).
package llm

import (
	"context"
)

// Provider is the interface all target LLM providers implement.
type Provider interface {
	// Name returns the provider name (e.g. "anthropic", "openai", "ollama").
	Name() string

	// Complete sends a completion request and returns the full response.
	// This is a blocking call that waits for the entire response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderType identifies a supported provider implementation.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig holds the settings needed to construct a provider.
type ProviderConfig struct {
	// Type selects the implementation.
	Type ProviderType `json:"type" yaml:"type" mapstructure:"type"`

	// APIKey authenticates against the provider. Falls back to the
	// provider's conventional environment variable when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the default model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways,
	// Ollama servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// CompletionRequest is a single prompt completion call.
type CompletionRequest struct {
	// Prompt is the attack prompt sent to the target.
	Prompt string

	// Temperature controls sampling. Zero uses the provider default.
	Temperature float64

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int
}

// CompletionResponse is the target's reply.
type CompletionResponse struct {
	// Content is the full response text.
	Content string

	// Model is the model that produced the response, when known.
	Model string
}
