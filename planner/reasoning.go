package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/refinelab/refinery/core/budget"
	"github.com/refinelab/refinery/core/parse"
	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/patterns/react"
)

const reasoningSystemPrompt = `You decide the next action for a hardware-design workflow.
Available actions: generate, validate, test, analyze, complete.
Use your tools to inspect the remaining budget and to categorize diagnostics.
Answer with a line starting with "Final Answer:" followed by a JSON object
{"action": "...", "rationale": "..."}.`

// ReasoningPlanner asks a reasoning collaborator for the next action through
// the bounded loop, equipped only with the budget classifier and the
// diagnostic categorizer. Any failure, including an action outside the
// vocabulary, falls back to the deterministic table so a flaky collaborator
// can degrade the planner but never break it.
type ReasoningPlanner struct {
	executor *react.Executor
	fallback *TablePlanner
	model    string
}

// NewReasoningPlanner wraps the given executor; the caller decides which tools
// the executor carries. The fallback table aims for the same target tier.
func NewReasoningPlanner(executor *react.Executor, targetTier int, model string) *ReasoningPlanner {
	return &ReasoningPlanner{
		executor: executor,
		fallback: NewTablePlanner(targetTier),
		model:    model,
	}
}

// Decide delegates to the collaborator and validates the returned action
// against the vocabulary. The consumed-call count is charged on every path,
// fallback included.
func (p *ReasoningPlanner) Decide(ctx context.Context, snapshot state.WorkflowState) (Decision, error) {
	outcome, err := p.executor.Invoke(ctx, react.Request{
		Model:        p.model,
		SystemPrompt: reasoningSystemPrompt,
		Prompt:       describeSnapshot(snapshot),
	})
	if err != nil {
		if ctx.Err() != nil {
			return Decision{Consumed: outcome.Calls}, ctx.Err()
		}
		return p.fallbackDecision(snapshot, outcome.Calls, err.Error())
	}

	action := strings.ToLower(parse.StringField(outcome.Payload, "action"))
	rationale := parse.StringField(outcome.Payload, "rationale")
	if !validAction(Action(action)) {
		return p.fallbackDecision(snapshot, outcome.Calls, fmt.Sprintf("unusable action %q", action))
	}
	if rationale == "" {
		rationale = "collaborator decision"
	}

	return Decision{Action: Action(action), Rationale: rationale, Consumed: outcome.Calls}, nil
}

func (p *ReasoningPlanner) fallbackDecision(snapshot state.WorkflowState, consumed int, cause string) (Decision, error) {
	decision, err := p.fallback.Decide(context.Background(), snapshot)
	if err != nil {
		return Decision{Consumed: consumed}, err
	}
	decision.Consumed = consumed
	decision.Rationale = fmt.Sprintf("%s (table fallback: %s)", decision.Rationale, cause)
	return decision, nil
}

func validAction(action Action) bool {
	for _, known := range Actions() {
		if action == known {
			return true
		}
	}
	return false
}

// describeSnapshot renders the snapshot fields a planning decision depends on.
func describeSnapshot(snapshot state.WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", snapshot.Task)
	fmt.Fprintf(&b, "Artifact present: %t\n", snapshot.Artifact != "")
	fmt.Fprintf(&b, "Diagnostics: %q (category: %q)\n", snapshot.Diagnostics, snapshot.Category)
	fmt.Fprintf(&b, "Structure valid: %t, interface confirmed: %t, tested since change: %t, last test failed: %t\n",
		snapshot.StructureValid, snapshot.InterfaceConfirmed, snapshot.TestedSinceChange, snapshot.LastTestFailed)
	fmt.Fprintf(&b, "Tier: %d\n", snapshot.Tier)
	fmt.Fprintf(&b, "Budget: %s\n", budget.Classify(snapshot.Invocations, snapshot.MaxInvocations))
	return b.String()
}
