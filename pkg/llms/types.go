// Package llms provides the LLM provider abstraction and concrete
// OpenAI-compatible and Anthropic implementations used by the agent loop.
package llms

import (
	"context"
	"fmt"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/registry"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMProvider interface {
	// Generate performs a non-streaming LLM request.
	// Returns the completion text and the total tokens reported by the provider.
	Generate(ctx context.Context, messages []Message) (text string, tokens int, err error)

	GetModelName() string

	GetMaxTokens() int

	GetTemperature() float64

	Close() error
}

type LLMRegistry struct {
	*registry.BaseRegistry[LLMProvider]
}

func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[LLMProvider](),
	}
}

func (r *LLMRegistry) RegisterLLM(name string, provider LLMProvider) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("LLM provider cannot be nil")
	}
	return r.Register(name, provider)
}

func (r *LLMRegistry) CreateLLMFromConfig(name string, cfg *config.LLMProviderConfig) (LLMProvider, error) {
	if name == "" {
		return nil, fmt.Errorf("LLM name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	var provider LLMProvider
	var err error

	switch cfg.Type {
	case "openai":
		provider, err = NewOpenAIProviderFromConfig(cfg)
	case "anthropic":
		provider, err = NewAnthropicProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM type: %s (supported: openai, anthropic)", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	if err := r.RegisterLLM(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register LLM provider: %w", err)
	}

	return provider, nil
}
