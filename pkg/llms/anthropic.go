package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/httpclient"
)

const anthropicVersion = "2023-06-01"

type AnthropicProvider struct {
	config     *config.LLMProviderConfig
	httpClient *httpclient.Client
}

type AnthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AnthropicResponse struct {
	Content []AnthropicContent `json:"content"`
	Usage   AnthropicUsage     `json:"usage"`
	Error   *AnthropicError    `json:"error,omitempty"`
}

type AnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAnthropicProviderFromConfig(cfg *config.LLMProviderConfig) (*AnthropicProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Anthropic configuration: %w", err)
	}

	return &AnthropicProvider{
		config:     cfg,
		httpClient: createHTTPClient(cfg),
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, messages []Message) (string, int, error) {
	system, converted := convertToAnthropicMessages(messages)

	maxTokens := p.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := AnthropicRequest{
		Model:       p.config.Model,
		System:      system,
		Messages:    converted,
		MaxTokens:   maxTokens,
		Temperature: p.temperature(),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(p.config.Host, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(req)
	// The client may return both a response and an error for non-2xx
	// status codes, so the body must be closed either way.
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", 0, fmt.Errorf("Anthropic request failed: %w%s", err, errorBodyDetail(resp))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response: %w", err)
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return "", 0, fmt.Errorf("Anthropic API error: %s", anthropicResp.Error.Message)
	}

	var text strings.Builder
	for _, part := range anthropicResp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", 0, fmt.Errorf("Anthropic returned no text content")
	}

	tokens := anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens
	return text.String(), tokens, nil
}

func (p *AnthropicProvider) GetModelName() string {
	return p.config.Model
}

func (p *AnthropicProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *AnthropicProvider) GetTemperature() float64 {
	return p.temperature()
}

func (p *AnthropicProvider) Close() error {
	return nil
}

func (p *AnthropicProvider) temperature() float64 {
	if p.config.Temperature != nil {
		return *p.config.Temperature
	}
	return 0.7
}

// convertToAnthropicMessages pulls system messages out of the conversation
// since the Anthropic API carries them in a dedicated request field.
func convertToAnthropicMessages(messages []Message) (string, []AnthropicMessage) {
	var system strings.Builder
	result := make([]AnthropicMessage, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
			continue
		}
		result = append(result, AnthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	return system.String(), result
}
