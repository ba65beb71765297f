package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/registry"
)

type ToolEntry struct {
	Tool       Tool       `json:"tool"`
	Source     ToolSource `json:"source"`
	SourceType string     `json:"source_type"`
	Name       string     `json:"name"`
}

type ToolRegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ToolRegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func NewToolRegistryError(component, action, message string, err error) *ToolRegistryError {
	return &ToolRegistryError{
		Component: component,
		Action:    action,
		Message:   message,
		Err:       err,
	}
}

// ToolRegistry is the action catalog. It is populated once at startup
// from the tool configuration; nothing is added or removed during a
// session. Duplicate registration and unknown-name lookup are errors,
// never silent.
type ToolRegistry struct {
	*registry.BaseRegistry[ToolEntry]
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		BaseRegistry: registry.NewBaseRegistry[ToolEntry](),
	}
}

// NewToolRegistryWithConfig builds the catalog from tool configuration,
// with all built-in tools rooted at workspaceRoot.
func NewToolRegistryWithConfig(workspaceRoot string, toolConfigs map[string]*config.ToolConfig) (*ToolRegistry, error) {
	r := NewToolRegistry()

	source, err := NewLocalToolSourceWithConfig(workspaceRoot, toolConfigs)
	if err != nil {
		return nil, fmt.Errorf("failed to create local tool source: %w", err)
	}

	if err := r.RegisterSource(source); err != nil {
		return nil, fmt.Errorf("failed to register local source: %w", err)
	}

	return r, nil
}

func (r *ToolRegistry) RegisterSource(source ToolSource) error {
	name := source.GetName()
	if name == "" {
		return NewToolRegistryError("ToolRegistry", "RegisterSource", "source name cannot be empty", nil)
	}

	for _, toolInfo := range source.ListTools() {
		tool, exists := source.GetTool(toolInfo.Name)
		if !exists {
			continue
		}

		entry := ToolEntry{
			Tool:       tool,
			Source:     source,
			SourceType: source.GetType(),
			Name:       toolInfo.Name,
		}

		if err := r.Register(toolInfo.Name, entry); err != nil {
			return NewToolRegistryError("ToolRegistry", "RegisterSource",
				fmt.Sprintf("failed to register tool %s", toolInfo.Name), err)
		}
	}

	return nil
}

func (r *ToolRegistry) GetTool(name string) (Tool, error) {
	entry, exists := r.Get(name)
	if !exists {
		return nil, NewToolRegistryError("ToolRegistry", "GetTool",
			fmt.Sprintf("tool %s not found", name), nil)
	}
	return entry.Tool, nil
}

func (r *ToolRegistry) ListTools() []ToolInfo {
	var tools []ToolInfo
	for _, entry := range r.List() {
		tools = append(tools, entry.Tool.GetInfo())
	}

	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})

	return tools
}

// ExecuteTool dispatches one tool call. An unknown tool name produces a
// failing ToolResult, not a crash, so the caller can feed the failure
// back to the model.
func (r *ToolRegistry) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	startTime := time.Now()

	tool, err := r.GetTool(toolName)
	if err != nil {
		return ToolResult{
			Success:       false,
			Error:         err.Error(),
			ToolName:      toolName,
			ExecutionTime: time.Since(startTime),
		}, err
	}

	result, execErr := tool.Execute(ctx, args)

	slog.Debug("Tool executed",
		"tool", toolName, "success", result.Success, "duration", time.Since(startTime))

	return result, execErr
}
