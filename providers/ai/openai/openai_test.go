package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/refinelab/refinery/internal/jsonschema"
	"github.com/refinelab/refinery/providers/ai"
)

func newTestProvider(handler http.HandlerFunc) (*httptest.Server, ai.Provider) {
	server := httptest.NewServer(handler)
	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")
	return server, provider
}

func TestSendMessageRoundTrip(t *testing.T) {
	var captured wireRequest
	server, provider := newTestProvider(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatCompletionsEndpoint {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(wireResponse{
			Id:    "resp-1",
			Model: "test-model",
			Choices: []wireChoice{{
				Message:      wireMessage{Role: "assistant", Content: "Final Answer: {\"done\": true}"},
				FinishReason: "stop",
			}},
			Usage: &ai.Usage{TotalTokens: 42},
		})
	})
	defer server.Close()

	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Model:        "test-model",
		SystemPrompt: "be terse",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "hello"}},
		Tools: []ai.ToolDescription{{
			Name:       "check_structure",
			Parameters: &jsonschema.Schema{Type: "object"},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if response.Content != `Final Answer: {"done": true}` {
		t.Errorf("Content = %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 42 {
		t.Errorf("Usage = %+v", response.Usage)
	}

	// System prompt becomes the leading system message on the wire.
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[0].Content != "be terse" {
		t.Errorf("wire messages = %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Type != "function" || captured.Tools[0].Function.Name != "check_structure" {
		t.Errorf("wire tools = %+v", captured.Tools)
	}
}

func TestSendMessageToolCallResponse(t *testing.T) {
	server, provider := newTestProvider(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(wireResponse{
			Choices: []wireChoice{{
				Message: wireMessage{
					Role: "assistant",
					ToolCalls: []ai.ToolCall{{
						ID:       "call_1",
						Type:     "function",
						Function: ai.ToolCallFunction{Name: "check_structure", Arguments: `{"source":"module m; endmodule"}`},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	})
	defer server.Close()

	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "check this"}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if len(response.ToolCalls) != 1 || response.ToolCalls[0].Function.Name != "check_structure" {
		t.Errorf("ToolCalls = %+v", response.ToolCalls)
	}
}

func TestSendMessageErrorStatus(t *testing.T) {
	server, provider := newTestProvider(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	})
	defer server.Close()

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hello"}},
	})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestSendMessageNoChoices(t *testing.T) {
	server, provider := newTestProvider(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(wireResponse{})
	})
	defer server.Close()

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hello"}},
	})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected a no-choices error, got %v", err)
	}
}

func TestIsStopMessage(t *testing.T) {
	provider := New()
	tests := []struct {
		name     string
		response *ai.ChatResponse
		want     bool
	}{
		{"nil response", nil, true},
		{"stop", &ai.ChatResponse{Content: "done", FinishReason: "stop"}, true},
		{"length", &ai.ChatResponse{Content: "cut", FinishReason: "length"}, true},
		{"empty without tools", &ai.ChatResponse{}, true},
		{"tool calls pending", &ai.ChatResponse{ToolCalls: []ai.ToolCall{{}}, FinishReason: "tool_calls"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := provider.IsStopMessage(tt.response); got != tt.want {
				t.Errorf("IsStopMessage = %t, want %t", got, tt.want)
			}
		})
	}
}
