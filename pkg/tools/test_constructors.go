package tools

import (
	"github.com/kadirpekel/anvil/pkg/config"
)

// Test-friendly constructors: small limits, short timeouts.

func testToolConfig() *config.ToolConfig {
	cfg := &config.ToolConfig{
		MaxFileSize:      4096,
		MaxResults:       20,
		MaxExecutionTime: "5s",
	}
	cfg.SetDefaults()
	return cfg
}

func NewReadFileToolForTesting(workspaceRoot string) *ReadFileTool {
	return NewReadFileTool(workspaceRoot, testToolConfig())
}

func NewWriteFileToolForTesting(workspaceRoot string) *FileWriterTool {
	return NewWriteFileTool(workspaceRoot, testToolConfig())
}

func NewAppendFileToolForTesting(workspaceRoot string) *FileWriterTool {
	return NewAppendFileTool(workspaceRoot, testToolConfig())
}

func NewPatchFileToolForTesting(workspaceRoot string) *PatchFileTool {
	return NewPatchFileTool(workspaceRoot, testToolConfig())
}

func NewRunScriptToolForTesting(workspaceRoot string) *RunScriptTool {
	return NewRunScriptTool(workspaceRoot, testToolConfig())
}

func NewSearchTextToolForTesting(workspaceRoot string) *SearchTextTool {
	return NewSearchTextTool(workspaceRoot, testToolConfig())
}
