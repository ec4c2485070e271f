package openai

import "github.com/refinelab/refinery/providers/ai"

// Wire types for the chat-completions protocol.

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type wireMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	ToolCalls  []ai.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type wireResponse struct {
	Id      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   *ai.Usage    `json:"usage,omitempty"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

func requestFromGeneric(request ai.ChatRequest) wireRequest {
	messages := make([]wireMessage, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		messages = append(messages, wireMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})
	}
	for _, message := range request.Messages {
		messages = append(messages, wireMessage{
			Role:       string(message.Role),
			Content:    message.Content,
			ToolCalls:  message.ToolCalls,
			ToolCallID: message.ToolCallID,
			Name:       message.Name,
		})
	}

	tools := make([]wireTool, 0, len(request.Tools))
	for _, description := range request.Tools {
		tools = append(tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        description.Name,
				Description: description.Description,
				Parameters:  description.Parameters,
			},
		})
	}

	return wireRequest{
		Model:       request.Model,
		Messages:    messages,
		Tools:       tools,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
	}
}

func responseToGeneric(resp *wireResponse) *ai.ChatResponse {
	choice := resp.Choices[0]
	return &ai.ChatResponse{
		Id:           resp.Id,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		Usage:        resp.Usage,
	}
}
