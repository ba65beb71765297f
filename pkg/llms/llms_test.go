package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kadirpekel/anvil/pkg/config"
)

func testLLMConfig(llmType, host string) *config.LLMProviderConfig {
	cfg := &config.LLMProviderConfig{
		Type:   llmType,
		Model:  "test-model",
		APIKey: "test-key",
		Host:   host,
	}
	cfg.SetDefaults()
	cfg.Host = host
	return cfg
}

func TestCreateLLMFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		llmType string
		wantErr bool
	}{
		{"openai provider", "openai", false},
		{"anthropic provider", "anthropic", false},
		{"unsupported type", "cohere", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewLLMRegistry()
			cfg := testLLMConfig(tt.llmType, "https://example.com")

			provider, err := reg.CreateLLMFromConfig("main", cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.GetModelName() != "test-model" {
				t.Errorf("expected model test-model, got %s", provider.GetModelName())
			}

			got, exists := reg.Get("main")
			if !exists {
				t.Fatal("provider not registered")
			}
			if got != provider {
				t.Error("registered provider does not match returned provider")
			}
		})
	}
}

func TestRegisterLLMValidation(t *testing.T) {
	reg := NewLLMRegistry()

	if err := reg.RegisterLLM("", &OpenAIProvider{}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := reg.RegisterLLM("main", nil); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotReq OpenAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		resp := OpenAIResponse{
			Choices: []Choice{{Message: OpenAIMessage{Role: "assistant", Content: "hello back"}}},
			Usage:   Usage{TotalTokens: 42},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testLLMConfig("openai", server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	text, tokens, err := provider.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello back" {
		t.Errorf("expected 'hello back', got %q", text)
	}
	if tokens != 42 {
		t.Errorf("expected 42 tokens, got %d", tokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != RoleSystem {
		t.Errorf("unexpected request messages: %+v", gotReq.Messages)
	}
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OpenAIResponse{
			Error: &Error{Message: "invalid model", Type: "invalid_request_error"},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testLLMConfig("openai", server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, _, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error from API error response")
	}
}

func TestOpenAIGenerateSurfacesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "authentication_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testLLMConfig("openai", server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, _, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("expected status code in error, got %q", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected response body in error, got %q", err)
	}
}

func TestAnthropicGenerateSurfacesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"type": "permission_error", "message": "key lacks access"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProviderFromConfig(testLLMConfig("anthropic", server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, _, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "key lacks access") {
		t.Errorf("expected response body in error, got %q", err)
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var gotReq AnthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("unexpected api key header: %s", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		resp := AnthropicResponse{
			Content: []AnthropicContent{{Type: "text", Text: "hi there"}},
			Usage:   AnthropicUsage{InputTokens: 10, OutputTokens: 5},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProviderFromConfig(testLLMConfig("anthropic", server.URL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	text, tokens, err := provider.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hi there" {
		t.Errorf("expected 'hi there', got %q", text)
	}
	if tokens != 15 {
		t.Errorf("expected 15 tokens, got %d", tokens)
	}

	if gotReq.System != "be terse" {
		t.Errorf("expected system prompt in dedicated field, got %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != RoleUser {
		t.Errorf("unexpected request messages: %+v", gotReq.Messages)
	}
}
