package ai

import "github.com/refinelab/refinery/internal/jsonschema"

// ChatRequest represents one request to a reasoning collaborator: the serialized
// context, the available tools, and an optional system prompt.
type ChatRequest struct {
	Model        string            `json:"model,omitempty"`
	Messages     []Message         `json:"messages"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	Tools        []ToolDescription `json:"tools,omitempty"`
	MaxTokens    int               `json:"max_tokens,omitempty"`
	Temperature  float32           `json:"temperature,omitempty"`
}

// ToolDescription advertises a tool to the collaborator: a name, a description,
// and the JSON schema of its input.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Message is a single message in a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// Tool calling fields.
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // for role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // for role=tool, links the observation to its call
	Name       string     `json:"name,omitempty"`         // for role=tool, name of the tool that produced this observation
}

// ToolCall is a tool directive emitted by the collaborator.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Usage reports token accounting for one response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse is the collaborator's reply to one request. Content is
// unstructured text; ToolCalls carries any tool directives.
type ChatResponse struct {
	Id           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// MessageRole represents the role of a message; compatible with string.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)
