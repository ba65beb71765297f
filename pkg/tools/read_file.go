package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
	"github.com/kadirpekel/anvil/pkg/utils"
)

type ReadFileTool struct {
	workspaceRoot string
	config        *config.ToolConfig
}

func NewReadFileTool(workspaceRoot string, cfg *config.ToolConfig) *ReadFileTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &ReadFileTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
	}
}

func (t *ReadFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "read_file",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path to read, relative to the workspace root",
				Required:    true,
			},
		},
	}
}

func (t *ReadFileTool) GetName() string {
	return "read_file"
}

func (t *ReadFileTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Read the contents of a file in the workspace"
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path := stringArg(args, "path")
	if path == "" {
		return errorResult(t.GetName(), "path parameter is required", start),
			fmt.Errorf("path parameter is required")
	}

	fullPath, err := sandbox.Resolve(t.workspaceRoot, path)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to stat file: %v", err), start), err
	}
	if fileInfo.IsDir() {
		return errorResult(t.GetName(), fmt.Sprintf("%s is a directory", path), start),
			fmt.Errorf("%s is a directory", path)
	}

	if fileInfo.Size() > int64(t.config.MaxFileSize) {
		return errorResult(t.GetName(),
			fmt.Sprintf("file too large: %d bytes (max: %d)", fileInfo.Size(), t.config.MaxFileSize),
			start), fmt.Errorf("file exceeds max size")
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to read file: %v", err), start), err
	}

	if utils.IsBinary(content) {
		return errorResult(t.GetName(), fmt.Sprintf("%s appears to be a binary file", path), start),
			fmt.Errorf("binary file")
	}

	return successResult(t.GetName(), string(content), start, map[string]interface{}{
		"path":      path,
		"file_size": fileInfo.Size(),
	}), nil
}
