package tools

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kadirpekel/anvil/pkg/config"
)

type LocalToolSource struct {
	name  string
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewLocalToolSource(name string) *LocalToolSource {
	if name == "" {
		name = "local"
	}

	return &LocalToolSource{
		name:  name,
		tools: make(map[string]Tool),
	}
}

// NewLocalToolSourceWithConfig builds every enabled built-in tool from
// its config entry, rooted at workspaceRoot.
func NewLocalToolSourceWithConfig(workspaceRoot string, toolConfigs map[string]*config.ToolConfig) (*LocalToolSource, error) {
	source := NewLocalToolSource("local")

	for toolName, toolConfig := range toolConfigs {
		if toolConfig == nil || !toolConfig.IsEnabled() {
			continue
		}

		handler := toolConfig.Handler
		if handler == "" {
			handler = toolName
		}

		var tool Tool
		var err error

		switch handler {
		case "read_file":
			tool = NewReadFileTool(workspaceRoot, toolConfig)
		case "write_file":
			tool = NewWriteFileTool(workspaceRoot, toolConfig)
		case "append_file":
			tool = NewAppendFileTool(workspaceRoot, toolConfig)
		case "list_dir":
			tool = NewListDirTool(workspaceRoot, toolConfig)
		case "search_text_in_files":
			tool = NewSearchTextTool(workspaceRoot, toolConfig)
		case "patch_file":
			tool = NewPatchFileTool(workspaceRoot, toolConfig)
		case "run_script":
			tool = NewRunScriptTool(workspaceRoot, toolConfig)
		case "delete_file":
			tool = NewDeleteFileTool(toolConfig)
		case "chat":
			tool = NewChatTool(toolConfig)
		case "git_add":
			tool = NewGitAddTool(workspaceRoot, toolConfig)
		case "git_commit":
			tool = NewGitCommitTool(workspaceRoot, toolConfig)
		case "git_push":
			tool = NewGitPushTool(workspaceRoot, toolConfig)
		case "search_web":
			tool, err = NewWebSearchTool(toolConfig)
		default:
			slog.Warn("Unknown tool handler, skipping", "tool", toolName, "handler", handler)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create tool '%s': %w", toolName, err)
		}

		if err := source.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool '%s': %w", toolName, err)
		}
	}

	return source, nil
}

func (r *LocalToolSource) GetName() string {
	return r.name
}

func (r *LocalToolSource) GetType() string {
	return "local"
}

func (r *LocalToolSource) RegisterTool(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.GetName()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered in source %s", name, r.name)
	}

	r.tools[name] = tool

	return nil
}

func (r *LocalToolSource) ListTools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ToolInfo, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool.GetInfo())
	}
	return tools
}

func (r *LocalToolSource) GetTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}
