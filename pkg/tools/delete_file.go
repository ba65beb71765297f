package tools

import (
	"context"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
)

const deleteDeniedMessage = "delete_file is not permitted: file deletion is disabled by policy"

// DeleteFileTool exists for discoverability only. Its implementation
// always returns a failing result: deletion is disabled by policy, not
// missing by accident.
type DeleteFileTool struct {
	config *config.ToolConfig
}

func NewDeleteFileTool(cfg *config.ToolConfig) *DeleteFileTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &DeleteFileTool{config: cfg}
}

func (t *DeleteFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "delete_file",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path to delete (always refused)",
				Required:    true,
			},
		},
	}
}

func (t *DeleteFileTool) GetName() string {
	return "delete_file"
}

func (t *DeleteFileTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Delete a file (disabled by policy, always refuses)"
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()
	return errorResult(t.GetName(), deleteDeniedMessage, start), nil
}
