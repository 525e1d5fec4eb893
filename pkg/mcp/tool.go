package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by ToolHandler.CallTool for names outside the
// handler's catalogue.
var ErrUnknownTool = errors.New("unknown tool")

// Tool-related types
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single tool argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ToolResponse struct {
	Content []ContentItem `json:"content"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextResponse encodes v as indented JSON inside a single text content item.
func TextResponse(v any) (ToolResponse, error) {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResponse{}, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return ToolResponse{
		Content: []ContentItem{
			{
				Type: "text",
				Text: string(text),
			},
		},
	}, nil
}
