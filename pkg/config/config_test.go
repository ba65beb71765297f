package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoadFromBytes(t *testing.T) {
	yaml := `
workspace:
  root: .
llm:
  type: openai
  model: gpt-4o-mini
  api_key: test-key
agent:
  max_steps: 5
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes() failed: %v", err)
	}

	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want gpt-4o-mini", cfg.LLM.Model)
	}
	if cfg.Agent.MaxSteps != 5 {
		t.Errorf("Agent.MaxSteps = %d, want 5", cfg.Agent.MaxSteps)
	}
	// Defaults filled for unset sections
	if cfg.Agent.RecentFilesCap != 10 {
		t.Errorf("Agent.RecentFilesCap = %d, want default 10", cfg.Agent.RecentFilesCap)
	}
	if len(cfg.Tools) == 0 {
		t.Error("expected default tool configs to be populated")
	}
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	os.Setenv("ANVIL_TEST_KEY", "secret-from-env")
	defer os.Unsetenv("ANVIL_TEST_KEY")

	yaml := `
llm:
  api_key: ${ANVIL_TEST_KEY}
  model: ${ANVIL_TEST_MODEL:-fallback-model}
agent:
  max_steps: ${ANVIL_TEST_STEPS:-7}
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes() failed: %v", err)
	}

	if cfg.LLM.APIKey != "secret-from-env" {
		t.Errorf("APIKey = %q, want expansion from env", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "fallback-model" {
		t.Errorf("Model = %q, want default fallback", cfg.LLM.Model)
	}
	if cfg.Agent.MaxSteps != 7 {
		t.Errorf("MaxSteps = %d, want 7 (numeric re-typing)", cfg.Agent.MaxSteps)
	}
}

func TestLoadFromBytes_InvalidLLMType(t *testing.T) {
	yaml := `
llm:
  type: carrier-pigeon
`
	_, err := LoadFromBytes([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error for unsupported llm type")
	}
	if !strings.Contains(err.Error(), "unsupported llm type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorkspaceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		wantErr bool
	}{
		{name: "current directory", root: "."},
		{name: "temp directory", root: t.TempDir()},
		{name: "missing directory", root: "/definitely/not/here", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &WorkspaceConfig{Root: tt.root}
			cfg.SetDefaults()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToolConfig_ExecutionTimeout(t *testing.T) {
	cfg := &ToolConfig{MaxExecutionTime: "5s"}
	if got := cfg.ExecutionTimeout().Seconds(); got != 5 {
		t.Errorf("ExecutionTimeout() = %vs, want 5s", got)
	}

	cfg = &ToolConfig{MaxExecutionTime: "bogus"}
	if got := cfg.ExecutionTimeout().Seconds(); got != 30 {
		t.Errorf("ExecutionTimeout() fallback = %vs, want 30s", got)
	}
}

func TestGetDefaultToolConfigs(t *testing.T) {
	configs := GetDefaultToolConfigs()

	required := []string{
		"read_file", "write_file", "append_file", "list_dir",
		"search_text_in_files", "patch_file", "run_script",
		"delete_file", "chat", "git_add", "git_commit", "git_push",
	}
	for _, name := range required {
		cfg, ok := configs[name]
		if !ok {
			t.Errorf("default tool config missing %q", name)
			continue
		}
		cfg.SetDefaults()
		if !cfg.IsEnabled() {
			t.Errorf("default tool %q should be enabled", name)
		}
	}

	// search_web stays off until an API key is configured
	if web, ok := configs["search_web"]; !ok {
		t.Error("search_web should be listed")
	} else if web.IsEnabled() {
		t.Error("search_web should default to disabled")
	}
}
