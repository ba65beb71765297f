// Package tools implements the action catalog: the fixed set of named,
// sandboxed operations the agent may dispatch, plus the registry that
// owns them.
package tools

import (
	"context"
	"time"
)

type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolResult is the outcome of one tool invocation. Produced fresh per
// call and never mutated after return.
type ToolResult struct {
	Success       bool                   `json:"success"`
	Content       string                 `json:"content,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ToolName      string                 `json:"tool_name"`
	ExecutionTime time.Duration          `json:"execution_time,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Tool is one registered action. Execute never panics: every internal
// failure is converted to a failing ToolResult at the tool boundary so
// the caller needs no tool-specific error handling.
type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)

	GetName() string

	GetDescription() string
}

type ToolSource interface {
	GetName() string

	GetType() string

	ListTools() []ToolInfo

	GetTool(name string) (Tool, bool)
}
