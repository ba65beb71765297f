package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
	"github.com/kadirpekel/anvil/pkg/utils"
)

// SearchTextTool performs a recursive substring search over workspace
// files, skipping hidden directories and binary files.
type SearchTextTool struct {
	workspaceRoot string
	config        *config.ToolConfig
}

func NewSearchTextTool(workspaceRoot string, cfg *config.ToolConfig) *SearchTextTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &SearchTextTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
	}
}

func (t *SearchTextTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "search_text_in_files",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Substring to search for",
				Required:    true,
			},
			{
				Name:        "path",
				Type:        "string",
				Description: "Directory to search under, relative to the workspace root (default: workspace root)",
				Required:    false,
				Default:     ".",
			},
		},
	}
}

func (t *SearchTextTool) GetName() string {
	return "search_text_in_files"
}

func (t *SearchTextTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Search workspace files for a substring, returning file:line matches"
}

func (t *SearchTextTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query := stringArg(args, "query")
	if query == "" {
		return errorResult(t.GetName(), "query parameter is required", start),
			fmt.Errorf("query parameter is required")
	}

	path := stringArg(args, "path")
	if path == "" {
		path = "."
	}

	searchRoot, err := sandbox.Resolve(t.workspaceRoot, path)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	var matches []string
	truncated := false

	walkErr := filepath.WalkDir(searchRoot, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > int64(t.config.MaxFileSize) {
			return nil
		}

		content, err := os.ReadFile(filePath)
		if err != nil || utils.IsBinary(content) {
			return nil
		}

		relPath := filePath
		if rel, err := filepath.Rel(searchRoot, filePath); err == nil {
			relPath = filepath.Join(path, rel)
		}

		for i, line := range strings.Split(string(content), "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", relPath, i+1, strings.TrimSpace(line)))
				if len(matches) >= t.config.MaxResults {
					truncated = true
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return errorResult(t.GetName(), fmt.Sprintf("search failed: %v", walkErr), start), walkErr
	}

	if len(matches) == 0 {
		return successResult(t.GetName(), fmt.Sprintf("No matches for %q", query), start, map[string]interface{}{
			"query":   query,
			"matches": 0,
		}), nil
	}

	content := strings.Join(matches, "\n")
	if truncated {
		content += fmt.Sprintf("\n...(truncated at %d matches)", t.config.MaxResults)
	}

	return successResult(t.GetName(), content, start, map[string]interface{}{
		"query":     query,
		"matches":   len(matches),
		"truncated": truncated,
	}), nil
}
