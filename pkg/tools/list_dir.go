package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
)

type ListDirTool struct {
	workspaceRoot string
	config        *config.ToolConfig
}

func NewListDirTool(workspaceRoot string, cfg *config.ToolConfig) *ListDirTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &ListDirTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
	}
}

func (t *ListDirTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "list_dir",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Directory to list, relative to the workspace root (default: workspace root)",
				Required:    false,
				Default:     ".",
			},
		},
	}
}

func (t *ListDirTool) GetName() string {
	return "list_dir"
}

func (t *ListDirTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "List the immediate entries of a workspace directory"
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path := stringArg(args, "path")
	if path == "" {
		path = "."
	}

	fullPath, err := sandbox.Resolve(t.workspaceRoot, path)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to list directory: %v", err), start), err
	}

	var output strings.Builder
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		output.WriteString(name)
		output.WriteString("\n")
	}

	content := strings.TrimSuffix(output.String(), "\n")
	if content == "" {
		content = "(empty directory)"
	}

	return successResult(t.GetName(), content, start, map[string]interface{}{
		"path":    path,
		"entries": len(entries),
	}), nil
}
