// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
)

// LLMProviderConfig configures the inference collaborator.
type LLMProviderConfig struct {
	// Type of provider (openai, anthropic). "openai" covers any
	// OpenAI-compatible endpoint, including Groq.
	Type string `yaml:"type,omitempty"`

	// Model name sent to the provider.
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates requests. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// Host is the API base URL.
	Host string `yaml:"host,omitempty"`

	// Temperature for generation.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxTokens caps the completion length.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout in seconds for a single inference call.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries for transient HTTP failures.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// RetryDelay in seconds between retries (base for backoff).
	RetryDelay int `yaml:"retry_delay,omitempty"`
}

func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.APIKey == "" {
		switch c.Type {
		case "anthropic":
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Host == "" {
		switch c.Type {
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		default:
			c.Host = "https://api.openai.com/v1"
		}
	}
	if c.Temperature == nil {
		t := 0.7
		c.Temperature = &t
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2
	}
}

func (c *LLMProviderConfig) Validate() error {
	switch c.Type {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm type %q (supported: openai, anthropic)", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	return nil
}
