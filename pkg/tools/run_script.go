package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
)

// RunScriptTool executes a workspace script after it passes the safety
// screen. The interpreter is selected by file extension; execution is
// bounded by the configured timeout and captures combined stdout/stderr.
type RunScriptTool struct {
	workspaceRoot string
	config        *config.ToolConfig
}

func NewRunScriptTool(workspaceRoot string, cfg *config.ToolConfig) *RunScriptTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &RunScriptTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
	}
}

func (t *RunScriptTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "run_script",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Script path to execute, relative to the workspace root",
				Required:    true,
			},
		},
	}
}

func (t *RunScriptTool) GetName() string {
	return "run_script"
}

func (t *RunScriptTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Execute a workspace script after a destructive-call safety screen"
}

func (t *RunScriptTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
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

	source, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to read script: %v", err), start), err
	}

	if err := sandbox.ScreenScript(string(source)); err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	ext := filepath.Ext(fullPath)
	interpreter, ok := t.config.Interpreters[ext]
	if !ok {
		return errorResult(t.GetName(),
			fmt.Sprintf("no interpreter configured for %q scripts", ext), start),
			fmt.Errorf("no interpreter for %s", ext)
	}

	execCtx, cancel := context.WithTimeout(ctx, t.config.ExecutionTimeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, interpreter, fullPath)
	cmd.Dir = t.workspaceRoot

	output, runErr := cmd.CombinedOutput()
	outText := strings.TrimSpace(string(output))

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		msg := fmt.Sprintf("script timed out after %s", t.config.ExecutionTimeout())
		if outText != "" {
			msg += "\n" + outText
		}
		return errorResult(t.GetName(), msg, start), execCtx.Err()
	}

	if runErr != nil {
		msg := fmt.Sprintf("script failed: %v", runErr)
		if outText != "" {
			msg += "\n" + outText
		}
		return errorResult(t.GetName(), msg, start), runErr
	}

	if outText == "" {
		outText = "(no output)"
	}

	return successResult(t.GetName(), outText, start, map[string]interface{}{
		"path":        path,
		"interpreter": interpreter,
	}), nil
}
