package tools

import (
	"fmt"
	"time"
)

func errorResult(toolName, errorMsg string, start time.Time) ToolResult {
	if errorMsg == "" {
		errorMsg = "unknown error"
	}

	return ToolResult{
		Success:       false,
		Error:         errorMsg,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
	}
}

func successResult(toolName, content string, start time.Time, metadata map[string]interface{}) ToolResult {
	return ToolResult{
		Success:       true,
		Content:       content,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
		Metadata:      metadata,
	}
}

func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}

// stringListArg accepts either a single string or a list of strings for
// key. Absent or empty values return a nil slice, any other shape errors.
func stringListArg(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list of strings, got %T", key, raw)
	}
}
