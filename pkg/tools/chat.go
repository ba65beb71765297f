package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirpekel/anvil/pkg/config"
)

// ChatTool is a stateless passthrough for free-form replies. It lets the
// model answer a question without ending the session in a final step.
type ChatTool struct {
	config *config.ToolConfig
}

func NewChatTool(cfg *config.ToolConfig) *ChatTool {
	if cfg == nil {
		cfg = &config.ToolConfig{}
	}
	cfg.SetDefaults()

	return &ChatTool{config: cfg}
}

func (t *ChatTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "chat",
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "Message to relay to the user",
				Required:    true,
			},
		},
	}
}

func (t *ChatTool) GetName() string {
	return "chat"
}

func (t *ChatTool) GetDescription() string {
	if t.config.Description != "" {
		return t.config.Description
	}
	return "Reply to the user in free form without ending the session"
}

func (t *ChatTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	message := stringArg(args, "message")
	if message == "" {
		return errorResult(t.GetName(), "message parameter is required", start),
			fmt.Errorf("message parameter is required")
	}

	return successResult(t.GetName(), message, start, nil), nil
}
