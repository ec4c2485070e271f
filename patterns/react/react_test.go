package react

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/refinelab/refinery/core/parse"
	"github.com/refinelab/refinery/providers/ai"
	"github.com/refinelab/refinery/providers/tool"
)

// mockProvider replays scripted responses and records incoming requests.
type mockProvider struct {
	responses []*ai.ChatResponse
	requests  []ai.ChatRequest
	err       error
	block     bool
}

func (m *mockProvider) SendMessage(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	index := len(m.requests) - 1
	if index >= len(m.responses) {
		return nil, errors.New("no more scripted responses")
	}
	return m.responses[index], nil
}

func (m *mockProvider) IsStopMessage(response *ai.ChatResponse) bool {
	return len(response.ToolCalls) == 0
}

func (m *mockProvider) WithAPIKey(string) ai.Provider           { return m }
func (m *mockProvider) WithBaseURL(string) ai.Provider          { return m }
func (m *mockProvider) WithHttpClient(*http.Client) ai.Provider { return m }

type echoInput struct {
	Text string `json:"text"`
}

func echoRegistry() *tool.Registry {
	echo := tool.New("echo",
		func(_ context.Context, input echoInput) (map[string]string, error) {
			return map[string]string{"echo": input.Text}, nil
		})
	return tool.NewRegistryWithTools(echo)
}

func textResponse(content string) *ai.ChatResponse {
	return &ai.ChatResponse{Content: content, FinishReason: "stop"}
}

func toolResponse(name, arguments string) *ai.ChatResponse {
	return &ai.ChatResponse{
		ToolCalls: []ai.ToolCall{{
			ID:       "call_1",
			Function: ai.ToolCallFunction{Name: name, Arguments: arguments},
		}},
		FinishReason: "tool_calls",
	}
}

func TestInvokeTerminalAnswerFirstStep(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		textResponse(`Final Answer: {"code": "module m; endmodule"}`),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "write a module"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if outcome.Calls != 1 {
		t.Errorf("Calls = %d, want 1", outcome.Calls)
	}
	if got := outcome.Payload["code"]; got != "module m; endmodule" {
		t.Errorf("Payload[code] = %v", got)
	}
	if len(outcome.Transcript) != 1 || !outcome.Transcript[0].Terminal {
		t.Errorf("transcript = %+v, want one terminal step", outcome.Transcript)
	}
}

func TestInvokeCapExhaustedCountsEveryCall(t *testing.T) {
	// A collaborator that never emits a terminal marker burns the whole cap.
	responses := make([]*ai.ChatResponse, DefaultMaxIterations)
	for i := range responses {
		responses[i] = textResponse("still thinking about it")
	}
	provider := &mockProvider{responses: responses}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if outcome.Calls != DefaultMaxIterations {
		t.Errorf("Calls = %d, want exactly %d", outcome.Calls, DefaultMaxIterations)
	}
	if len(provider.requests) != DefaultMaxIterations {
		t.Errorf("provider saw %d requests, want %d", len(provider.requests), DefaultMaxIterations)
	}

	var failure *parse.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *parse.Failure, got %T (%v)", err, err)
	}
	if failure.Reason != parse.ReasonIterationLimit {
		t.Errorf("reason = %q, want %q", failure.Reason, parse.ReasonIterationLimit)
	}
}

func TestInvokeToolDirectiveThenTerminal(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse("echo", `{"text":"ping"}`),
		textResponse(`Final Answer: {"done": true}`),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if outcome.Calls != 2 {
		t.Errorf("Calls = %d, want 2", outcome.Calls)
	}

	if len(outcome.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(outcome.Transcript))
	}
	step := outcome.Transcript[0]
	if step.Tool != "echo" || !strings.Contains(step.Observation, "ping") {
		t.Errorf("tool step = %+v", step)
	}

	// The second request must carry the tool observation back.
	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != ai.RoleTool || !strings.Contains(last.Content, "ping") {
		t.Errorf("last message = %+v, want tool observation", last)
	}
}

func TestInvokeUnknownToolBecomesObservation(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse("does_not_exist", `{}`),
		textResponse(`Final Answer: {"done": true}`),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if err != nil {
		t.Fatalf("a missing tool must not abort the loop, got %v", err)
	}
	if !strings.Contains(outcome.Transcript[0].Observation, "not found") {
		t.Errorf("observation = %q, want a not-found notice", outcome.Transcript[0].Observation)
	}
}

func TestInvokeSchemaErrorBecomesObservation(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse("echo", `{"text": 42}`),
		textResponse(`Final Answer: {"done": true}`),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if err != nil {
		t.Fatalf("a schema error must not abort the loop, got %v", err)
	}
	if !strings.Contains(outcome.Transcript[0].Observation, "invalid input") {
		t.Errorf("observation = %q, want a schema notice", outcome.Transcript[0].Observation)
	}
}

func TestInvokeMalformedStepGetsCorrectiveInstruction(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		textResponse("I am not sure what to do"),
		textResponse(`Final Answer: {"done": true}`),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if outcome.Calls != 2 {
		t.Errorf("malformed step must count toward the cap, Calls = %d", outcome.Calls)
	}
	if !outcome.Transcript[0].Malformed {
		t.Errorf("first step should be marked malformed: %+v", outcome.Transcript[0])
	}

	second := provider.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != ai.RoleUser || !strings.Contains(last.Content, "Final Answer") {
		t.Errorf("expected corrective instruction, got %+v", last)
	}
}

func TestInvokeTerminalWithoutPayloadFails(t *testing.T) {
	provider := &mockProvider{responses: []*ai.ChatResponse{
		textResponse("Final Answer: it works, trust me"),
	}}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	var failure *parse.Failure
	if !errors.As(err, &failure) || failure.Reason != parse.ReasonNoStructuredPayload {
		t.Fatalf("expected no_structured_payload, got %v", err)
	}
	if outcome.Calls != 1 {
		t.Errorf("Calls = %d, want 1", outcome.Calls)
	}
	if outcome.Raw == "" {
		t.Error("Raw terminal text should be preserved for salvage")
	}
}

func TestInvokeCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &mockProvider{}
	executor := New(provider, echoRegistry())

	outcome, err := executor.Invoke(ctx, Request{Prompt: "task"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if outcome.Calls != 0 || len(provider.requests) != 0 {
		t.Errorf("no collaborator call should happen after cancellation, Calls = %d", outcome.Calls)
	}
}

func TestInvokeStepTimeout(t *testing.T) {
	provider := &mockProvider{block: true}
	executor := New(provider, echoRegistry(), WithStepTimeout(10*time.Millisecond))

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	var failure *parse.Failure
	if !errors.As(err, &failure) || failure.Reason != parse.ReasonTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if outcome.Calls != 1 {
		t.Errorf("Calls = %d, want 1 (the timed-out step is still charged)", outcome.Calls)
	}
}

func TestInvokeStepTimeoutCoversToolCalls(t *testing.T) {
	stalling := tool.New("stall",
		func(ctx context.Context, _ echoInput) (map[string]string, error) {
			// Honours cancellation but never returns on its own.
			<-ctx.Done()
			return nil, ctx.Err()
		})
	provider := &mockProvider{responses: []*ai.ChatResponse{
		toolResponse("stall", `{"text":"x"}`),
		textResponse(`Final Answer: {"done": true}`),
	}}
	executor := New(provider, tool.NewRegistryWithTools(stalling), WithStepTimeout(10*time.Millisecond))

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if err != nil {
		t.Fatalf("a stalled tool must not stall the loop, got %v", err)
	}
	if !strings.Contains(outcome.Transcript[0].Observation, "error") {
		t.Errorf("observation = %q, want the deadline folded in", outcome.Transcript[0].Observation)
	}
	if outcome.Payload["done"] != true {
		t.Errorf("Payload = %v, the loop should recover on the next step", outcome.Payload)
	}
}

func TestWithMaxIterations(t *testing.T) {
	responses := []*ai.ChatResponse{
		textResponse("nope"),
		textResponse("still nope"),
	}
	provider := &mockProvider{responses: responses}
	executor := New(provider, echoRegistry(), WithMaxIterations(2))

	outcome, err := executor.Invoke(context.Background(), Request{Prompt: "task"})
	if outcome.Calls != 2 {
		t.Errorf("Calls = %d, want 2", outcome.Calls)
	}
	var failure *parse.Failure
	if !errors.As(err, &failure) || failure.Reason != parse.ReasonIterationLimit {
		t.Fatalf("expected iteration_limit, got %v", err)
	}
}
