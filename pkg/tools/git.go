package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
)

type gitSubcommand string

const (
	gitAdd    gitSubcommand = "add"
	gitCommit gitSubcommand = "commit"
	gitPush   gitSubcommand = "push"
)

// GitTool shells out to the git binary inside the workspace and surfaces
// its output verbatim, success or failure.
type GitTool struct {
	workspaceRoot string
	config        *config.ToolConfig
	subcommand    gitSubcommand
}

func NewGitAddTool(workspaceRoot string, cfg *config.ToolConfig) *GitTool {
	return newGitTool(workspaceRoot, cfg, gitAdd)
}

func NewGitCommitTool(workspaceRoot string, cfg *config.ToolConfig) *GitTool {
	return newGitTool(workspaceRoot, cfg, gitCommit)
}

func NewGitPushTool(workspaceRoot string, cfg *config.ToolConfig) *GitTool {
	return newGitTool(workspaceRoot, cfg, gitPush)
}

func newGitTool(workspaceRoot string, cfg *config.ToolConfig, sub gitSubcommand) *GitTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &GitTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
		subcommand:    sub,
	}
}

func (t *GitTool) GetInfo() ToolInfo {
	info := ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
	}

	switch t.subcommand {
	case gitAdd:
		info.Parameters = []ToolParameter{
			{
				Name:        "files",
				Type:        "string",
				Description: "File, pathspec or list of files to stage (default: all changes)",
				Required:    false,
				Default:     ".",
			},
		}
	case gitCommit:
		info.Parameters = []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "Commit message",
				Required:    true,
			},
		}
	}

	return info
}

func (t *GitTool) GetName() string {
	return "git_" + string(t.subcommand)
}

func (t *GitTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}

	switch t.subcommand {
	case gitAdd:
		return "Stage files in the workspace git repository"
	case gitCommit:
		return "Commit staged changes in the workspace git repository"
	default:
		return "Push committed changes to the remote git repository"
	}
}

func (t *GitTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	var gitArgs []string
	switch t.subcommand {
	case gitAdd:
		files, err := stringListArg(args, "files")
		if err != nil {
			return errorResult(t.GetName(), err.Error(), start), err
		}
		if len(files) == 0 {
			files = []string{"."}
		}
		gitArgs = append([]string{"add"}, files...)

	case gitCommit:
		message := stringArg(args, "message")
		if message == "" {
			return errorResult(t.GetName(), "message parameter is required", start),
				fmt.Errorf("message parameter is required")
		}
		gitArgs = []string{"commit", "-m", message}

	case gitPush:
		gitArgs = []string{"push"}
	}

	execCtx, cancel := context.WithTimeout(ctx, t.config.ExecutionTimeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, "git", gitArgs...)
	cmd.Dir = t.workspaceRoot

	output, runErr := cmd.CombinedOutput()
	outText := strings.TrimSpace(string(output))

	if runErr != nil {
		msg := fmt.Sprintf("git %s failed: %v", t.subcommand, runErr)
		if outText != "" {
			msg += "\n" + outText
		}
		return errorResult(t.GetName(), msg, start), runErr
	}

	if outText == "" {
		outText = fmt.Sprintf("git %s completed", t.subcommand)
	}

	return successResult(t.GetName(), outText, start, map[string]interface{}{
		"subcommand": string(t.subcommand),
	}), nil
}
