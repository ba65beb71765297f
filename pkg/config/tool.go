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
	"time"
)

// ToolConfig configures one built-in tool.
type ToolConfig struct {
	// Handler selects the built-in implementation. Defaults to the tool's
	// registered name.
	Handler string `yaml:"handler,omitempty"`

	// Enabled controls whether the tool is registered.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Description overrides the built-in tool description.
	Description string `yaml:"description,omitempty"`

	// MaxFileSize caps file content read or written, in bytes.
	MaxFileSize int `yaml:"max_file_size,omitempty"`

	// MaxResults caps search matches returned.
	MaxResults int `yaml:"max_results,omitempty"`

	// MaxExecutionTime bounds script and git executions (duration string).
	MaxExecutionTime string `yaml:"max_execution_time,omitempty"`

	// Interpreters maps script extensions to interpreter binaries
	// (run_script only).
	Interpreters map[string]string `yaml:"interpreters,omitempty"`

	// APIKey for tools that call external services (search_web only).
	APIKey string `yaml:"api_key,omitempty"`

	// Host for tools that call external services (search_web only).
	Host string `yaml:"host,omitempty"`
}

func (c *ToolConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 1048576
	}
	if c.MaxResults == 0 {
		c.MaxResults = 200
	}
	if c.MaxExecutionTime == "" {
		c.MaxExecutionTime = "30s"
	}
	if c.Interpreters == nil {
		c.Interpreters = map[string]string{
			".py": "python3",
			".sh": "sh",
		}
	}
}

func (c *ToolConfig) Validate() error {
	if c.MaxExecutionTime != "" {
		if _, err := time.ParseDuration(c.MaxExecutionTime); err != nil {
			return fmt.Errorf("invalid max_execution_time: %w", err)
		}
	}
	return nil
}

// IsEnabled returns whether the tool is enabled.
func (c *ToolConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ExecutionTimeout parses MaxExecutionTime, falling back to 30s.
func (c *ToolConfig) ExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.MaxExecutionTime)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetDefaultToolConfigs returns the built-in action set. Every entry here
// is registered at startup; delete_file stays listed even though its
// implementation always refuses, so the model can discover the policy.
func GetDefaultToolConfigs() map[string]*ToolConfig {
	return map[string]*ToolConfig{
		"read_file":            {Handler: "read_file"},
		"write_file":           {Handler: "write_file"},
		"append_file":          {Handler: "append_file"},
		"list_dir":             {Handler: "list_dir"},
		"search_text_in_files": {Handler: "search_text_in_files"},
		"patch_file":           {Handler: "patch_file"},
		"run_script":           {Handler: "run_script"},
		"delete_file":          {Handler: "delete_file"},
		"chat":                 {Handler: "chat"},
		"git_add":              {Handler: "git_add"},
		"git_commit":           {Handler: "git_commit"},
		"git_push":             {Handler: "git_push"},
		"search_web": {
			Handler: "search_web",
			Enabled: BoolPtr(false), // enabled by config when an API key is present
		},
	}
}
