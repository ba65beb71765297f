package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
)

type writeMode int

const (
	modeOverwrite writeMode = iota
	modeAppend
)

// FileWriterTool backs both write_file and append_file. Parent
// directories are created as needed.
type FileWriterTool struct {
	workspaceRoot string
	config        *config.ToolConfig
	mode          writeMode
}

func NewWriteFileTool(workspaceRoot string, cfg *config.ToolConfig) *FileWriterTool {
	return newFileWriterTool(workspaceRoot, cfg, modeOverwrite)
}

func NewAppendFileTool(workspaceRoot string, cfg *config.ToolConfig) *FileWriterTool {
	return newFileWriterTool(workspaceRoot, cfg, modeAppend)
}

func newFileWriterTool(workspaceRoot string, cfg *config.ToolConfig, mode writeMode) *FileWriterTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &FileWriterTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
		mode:          mode,
	}
}

func (t *FileWriterTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path to write, relative to the workspace root",
				Required:    true,
			},
			{
				Name:        "content",
				Type:        "string",
				Description: "Content to write",
				Required:    true,
			},
		},
	}
}

func (t *FileWriterTool) GetName() string {
	if t.mode == modeAppend {
		return "append_file"
	}
	return "write_file"
}

func (t *FileWriterTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	if t.mode == modeAppend {
		return "Append content to a file, creating it if absent"
	}
	return "Create or overwrite a file with the given content"
}

func (t *FileWriterTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path := stringArg(args, "path")
	if path == "" {
		return errorResult(t.GetName(), "path parameter is required", start),
			fmt.Errorf("path parameter is required")
	}

	content, ok := args["content"].(string)
	if !ok {
		return errorResult(t.GetName(), "content parameter is required", start),
			fmt.Errorf("content parameter is required")
	}

	if len(content) > t.config.MaxFileSize {
		return errorResult(t.GetName(),
			fmt.Sprintf("content too large: %d bytes (max: %d)", len(content), t.config.MaxFileSize),
			start), fmt.Errorf("content exceeds max size")
	}

	fullPath, err := sandbox.Resolve(t.workspaceRoot, path)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	_, statErr := os.Stat(fullPath)
	created := os.IsNotExist(statErr)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to create parent directories: %v", err), start), err
	}

	if t.mode == modeAppend {
		f, err := os.OpenFile(fullPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errorResult(t.GetName(), fmt.Sprintf("failed to open file: %v", err), start), err
		}
		defer f.Close()

		if _, err := f.WriteString(content); err != nil {
			return errorResult(t.GetName(), fmt.Sprintf("failed to append to file: %v", err), start), err
		}
	} else {
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			return errorResult(t.GetName(), fmt.Sprintf("failed to write file: %v", err), start), err
		}
	}

	verb := "Wrote"
	if t.mode == modeAppend {
		verb = "Appended"
	}

	return successResult(t.GetName(),
		fmt.Sprintf("%s %d bytes to %s", verb, len(content), path),
		start, map[string]interface{}{
			"path":    path,
			"bytes":   len(content),
			"created": created,
		}), nil
}
