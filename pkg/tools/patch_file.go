package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/sandbox"
)

const (
	editActionInsert  = "insert"
	editActionReplace = "replace"
	editActionRemove  = "remove"
)

// PatchEdit is one line-indexed edit. Line numbers are 1-based and refer
// to the file as it was before any edit in the batch was applied.
type PatchEdit struct {
	Action  string `mapstructure:"action"`
	Line    int    `mapstructure:"line"`
	Content string `mapstructure:"content"`
}

// PatchFileTool applies line-indexed edits to a file. Edits are applied
// in descending line-number order so earlier edits never shift the
// indices of later ones; the result is independent of input order.
type PatchFileTool struct {
	workspaceRoot string
	config        *config.ToolConfig
}

func NewPatchFileTool(workspaceRoot string, cfg *config.ToolConfig) *PatchFileTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &PatchFileTool{
		workspaceRoot: workspaceRoot,
		config:        cfg,
	}
}

func (t *PatchFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "patch_file",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path to patch, relative to the workspace root",
				Required:    true,
			},
			{
				Name:        "edits",
				Type:        "array",
				Description: "Edits of the form {action: insert|replace|remove, line: number, content: string}",
				Required:    true,
			},
		},
	}
}

func (t *PatchFileTool) GetName() string {
	return "patch_file"
}

func (t *PatchFileTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Apply line-indexed insert/replace/remove edits to a file"
}

func (t *PatchFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path := stringArg(args, "path")
	if path == "" {
		return errorResult(t.GetName(), "path parameter is required", start),
			fmt.Errorf("path parameter is required")
	}

	edits, err := decodeEdits(args["edits"])
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}
	if len(edits) == 0 {
		return errorResult(t.GetName(), "edits parameter is required", start),
			fmt.Errorf("edits parameter is required")
	}

	fullPath, err := sandbox.Resolve(t.workspaceRoot, path)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to read file: %v", err), start), err
	}

	lines := strings.Split(string(content), "\n")

	patched, err := applyEdits(lines, edits)
	if err != nil {
		return errorResult(t.GetName(), err.Error(), start), err
	}

	if err := os.WriteFile(fullPath, []byte(strings.Join(patched, "\n")), 0644); err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to write file: %v", err), start), err
	}

	return successResult(t.GetName(),
		fmt.Sprintf("Applied %d edit(s) to %s", len(edits), path),
		start, map[string]interface{}{
			"path":  path,
			"edits": len(edits),
		}), nil
}

func decodeEdits(raw interface{}) ([]PatchEdit, error) {
	if raw == nil {
		return nil, fmt.Errorf("edits parameter is required")
	}

	var edits []PatchEdit
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &edits,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build edit decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("edits must be a list of {action, line, content} objects: %w", err)
	}

	for i, edit := range edits {
		switch edit.Action {
		case editActionInsert, editActionReplace, editActionRemove:
		default:
			return nil, fmt.Errorf("edit %d: unknown action %q (expected insert, replace or remove)", i, edit.Action)
		}
		if edit.Line < 1 {
			return nil, fmt.Errorf("edit %d: line must be a positive integer, got %d", i, edit.Line)
		}
	}

	return edits, nil
}

// applyEdits sorts edits by descending line number before applying, so
// the recorded line numbers stay valid throughout the batch.
func applyEdits(lines []string, edits []PatchEdit) ([]string, error) {
	sorted := make([]PatchEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Line > sorted[j].Line
	})

	result := make([]string, len(lines))
	copy(result, lines)

	for _, edit := range sorted {
		idx := edit.Line - 1

		switch edit.Action {
		case editActionInsert:
			// Inserting at len+1 appends after the last line.
			if idx > len(result) {
				return nil, fmt.Errorf("insert at line %d out of range (file has %d lines)", edit.Line, len(result))
			}
			result = append(result[:idx], append([]string{edit.Content}, result[idx:]...)...)

		case editActionReplace:
			if idx >= len(result) {
				return nil, fmt.Errorf("replace at line %d out of range (file has %d lines)", edit.Line, len(result))
			}
			result[idx] = edit.Content

		case editActionRemove:
			if idx >= len(result) {
				return nil, fmt.Errorf("remove at line %d out of range (file has %d lines)", edit.Line, len(result))
			}
			result = append(result[:idx], result[idx+1:]...)
		}
	}

	return result, nil
}
