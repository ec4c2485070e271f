package planner

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
	"github.com/refinelab/refinery/patterns/react"
	"github.com/refinelab/refinery/providers/ai"
	"github.com/refinelab/refinery/providers/tool"
)

type scriptedProvider struct {
	responses []*ai.ChatResponse
	calls     int
	err       error
}

func (s *scriptedProvider) SendMessage(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls > len(s.responses) {
		return nil, errors.New("no more scripted responses")
	}
	return s.responses[s.calls-1], nil
}

func (s *scriptedProvider) IsStopMessage(response *ai.ChatResponse) bool {
	return len(response.ToolCalls) == 0
}

func (s *scriptedProvider) WithAPIKey(string) ai.Provider           { return s }
func (s *scriptedProvider) WithBaseURL(string) ai.Provider          { return s }
func (s *scriptedProvider) WithHttpClient(*http.Client) ai.Provider { return s }

func newReasoningPlanner(provider ai.Provider) *ReasoningPlanner {
	executor := react.New(provider, tool.NewRegistry(), react.WithMaxIterations(2))
	return NewReasoningPlanner(executor, tier.Verified, "test-model")
}

func TestReasoningPlannerUsesCollaboratorDecision(t *testing.T) {
	provider := &scriptedProvider{responses: []*ai.ChatResponse{
		{Content: `Final Answer: {"action": "validate", "rationale": "fresh draft needs a check"}`},
	}}
	p := newReasoningPlanner(provider)

	decision, err := p.Decide(context.Background(), state.WorkflowState{Artifact: "module m; endmodule", MaxInvocations: 50})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if decision.Action != ActionValidate {
		t.Errorf("Action = %s, want validate", decision.Action)
	}
	if decision.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1 collaborator call", decision.Consumed)
	}
	if decision.Rationale != "fresh draft needs a check" {
		t.Errorf("Rationale = %q", decision.Rationale)
	}
}

func TestReasoningPlannerNormalizesActionCase(t *testing.T) {
	provider := &scriptedProvider{responses: []*ai.ChatResponse{
		{Content: `Final Answer: {"action": "Generate", "rationale": "start over"}`},
	}}
	p := newReasoningPlanner(provider)

	decision, err := p.Decide(context.Background(), state.WorkflowState{MaxInvocations: 50})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if decision.Action != ActionGenerate {
		t.Errorf("Action = %s, want generate", decision.Action)
	}
}

func TestReasoningPlannerFallsBackOnUnknownAction(t *testing.T) {
	provider := &scriptedProvider{responses: []*ai.ChatResponse{
		{Content: `Final Answer: {"action": "deploy", "rationale": "ship it"}`},
	}}
	p := newReasoningPlanner(provider)

	decision, err := p.Decide(context.Background(), state.WorkflowState{MaxInvocations: 50})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	// Empty snapshot: the table says generate.
	if decision.Action != ActionGenerate {
		t.Errorf("Action = %s, want table fallback generate", decision.Action)
	}
	if !strings.Contains(decision.Rationale, "fallback") {
		t.Errorf("Rationale should mention the fallback: %q", decision.Rationale)
	}
	if decision.Consumed != 1 {
		t.Errorf("Consumed = %d, the wasted call must still be charged", decision.Consumed)
	}
}

func TestReasoningPlannerFallsBackOnProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("provider down")}
	p := newReasoningPlanner(provider)

	decision, err := p.Decide(context.Background(), state.WorkflowState{MaxInvocations: 50})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if decision.Action != ActionGenerate {
		t.Errorf("Action = %s, want table fallback generate", decision.Action)
	}
}

func TestReasoningPlannerPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{}
	p := newReasoningPlanner(provider)

	_, err := p.Decide(ctx, state.WorkflowState{MaxInvocations: 50})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
