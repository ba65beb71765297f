package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/httpclient"
)

const defaultSearchHost = "https://api.exa.ai"

// WebSearchTool queries an Exa-style search endpoint that speaks the
// OpenAI chat-completions wire format. The tool is disabled unless an
// API key is configured.
type WebSearchTool struct {
	config     *config.ToolConfig
	httpClient *httpclient.Client
}

type webSearchRequest struct {
	Model    string             `json:"model"`
	Messages []webSearchMessage `json:"messages"`
	Stream   bool               `json:"stream"`
}

type webSearchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type webSearchResponse struct {
	Choices []struct {
		Message webSearchMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewWebSearchTool(cfg *config.ToolConfig) (*WebSearchTool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tool config is required")
	}
	cfg.SetDefaults()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search_web requires an api_key")
	}
	if cfg.Host == "" {
		cfg.Host = defaultSearchHost
	}

	return &WebSearchTool{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.ExecutionTimeout()}),
		),
	}, nil
}

func (t *WebSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "search_web",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Search query",
				Required:    true,
			},
		},
	}
}

func (t *WebSearchTool) GetName() string {
	return "search_web"
}

func (t *WebSearchTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Search the web for a query and return summarized results"
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query := stringArg(args, "query")
	if query == "" {
		return errorResult(t.GetName(), "query parameter is required", start),
			fmt.Errorf("query parameter is required")
	}

	reqBody := webSearchRequest{
		Model:    "exa",
		Messages: []webSearchMessage{{Role: "user", Content: query}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to marshal request: %v", err), start), err
	}

	url := strings.TrimSuffix(t.config.Host, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to create request: %v", err), start), err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.config.APIKey)

	resp, err := t.httpClient.Do(req)
	// The client may return both a response and an error for non-2xx
	// status codes, so the body must be closed either way.
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		msg := fmt.Sprintf("search request failed: %v", err)
		if resp != nil {
			if body, readErr := io.ReadAll(resp.Body); readErr == nil {
				if text := strings.TrimSpace(string(body)); text != "" {
					msg += ": " + text
				}
			}
		}
		return errorResult(t.GetName(), msg, start), err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to read response: %v", err), start), err
	}

	var searchResp webSearchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to parse response: %v", err), start), err
	}

	if searchResp.Error != nil {
		return errorResult(t.GetName(), fmt.Sprintf("search API error: %s", searchResp.Error.Message), start),
			fmt.Errorf("search API error: %s", searchResp.Error.Message)
	}
	if len(searchResp.Choices) == 0 {
		return errorResult(t.GetName(), "search returned no results", start),
			fmt.Errorf("search returned no results")
	}

	return successResult(t.GetName(),
		"Search Results: "+searchResp.Choices[0].Message.Content,
		start, map[string]interface{}{
			"query": query,
		}), nil
}
