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

// Package config defines the Anvil configuration model: workspace, LLM
// provider, tools, agent loop, and logging sections, loaded from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	// Workspace is the directory all actions are sandboxed to.
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`

	// LLM configures the inference provider.
	LLM LLMProviderConfig `yaml:"llm,omitempty"`

	// Agent configures the orchestration loop.
	Agent AgentConfig `yaml:"agent,omitempty"`

	// Tools maps tool names to their configuration.
	Tools map[string]*ToolConfig `yaml:"tools,omitempty"`

	// Logger configures logging output.
	Logger LoggerConfig `yaml:"logger,omitempty"`
}

// WorkspaceConfig locates and bounds the agent workspace.
type WorkspaceConfig struct {
	// Root directory for all file actions. Resolved to an absolute path
	// at load time.
	Root string `yaml:"root,omitempty"`

	// SummaryMaxFileSize caps per-file content included in the workspace
	// summary taken at session start.
	SummaryMaxFileSize int `yaml:"summary_max_file_size,omitempty"`
}

func (c *WorkspaceConfig) SetDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.SummaryMaxFileSize == 0 {
		c.SummaryMaxFileSize = 4096
	}
}

func (c *WorkspaceConfig) Validate() error {
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("cannot resolve workspace root %q: %w", c.Root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace root %q: %w", c.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root %q is not a directory", c.Root)
	}
	c.Root = abs
	return nil
}

// AgentConfig configures the orchestration loop.
type AgentConfig struct {
	// MaxSteps bounds loop iterations per goal. Model failures count
	// against it so the loop always terminates.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// ContextBudget is the token budget for assembled prompts.
	ContextBudget int `yaml:"context_budget,omitempty"`

	// RecentFilesCap bounds the recently-created-files list (FIFO).
	RecentFilesCap int `yaml:"recent_files_cap,omitempty"`
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = 25
	}
	if c.ContextBudget == 0 {
		c.ContextBudget = 8000
	}
	if c.RecentFilesCap == 0 {
		c.RecentFilesCap = 10
	}
}

func (c *AgentConfig) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("agent max_steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

// SetDefaults applies defaults to all sections.
func (c *Config) SetDefaults() {
	c.Workspace.SetDefaults()
	c.LLM.SetDefaults()
	c.Agent.SetDefaults()
	c.Logger.SetDefaults()

	if c.Tools == nil {
		c.Tools = GetDefaultToolConfigs()
	}
	for _, tool := range c.Tools {
		if tool != nil {
			tool.SetDefaults()
		}
	}
}

// Validate checks all sections.
func (c *Config) Validate() error {
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	for name, tool := range c.Tools {
		if tool == nil {
			continue
		}
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tool %q: %w", name, err)
		}
	}
	return nil
}

// DefaultConfig returns a ready-to-run zero-config setup: current
// directory as workspace, provider settings from environment variables.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// LoadFromFile reads, expands, parses, defaults and validates a YAML
// config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	// Round-trip through YAML so expansion results decode with the same
	// strictness as the original document.
	reencoded, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(reencoded, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// BoolValue dereferences p, falling back to def when p is nil.
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
