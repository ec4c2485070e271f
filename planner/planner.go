// Package planner decides what the engine does next. The default planner is a
// pure priority table over the workflow snapshot; a reasoning-backed variant
// delegates to the bounded loop and falls back to the table when reasoning
// fails. Both satisfy the same contract and never mutate state.
package planner

import (
	"context"
	"fmt"

	"github.com/refinelab/refinery/core/budget"
	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
)

// Action is one entry of the fixed action vocabulary.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionValidate Action = "validate"
	ActionTest     Action = "test"
	ActionAnalyze  Action = "analyze"
	ActionComplete Action = "complete"
)

// Actions lists the vocabulary in dispatch order.
func Actions() []Action {
	return []Action{ActionGenerate, ActionValidate, ActionTest, ActionAnalyze, ActionComplete}
}

// Decision is what a planner hands back: the chosen action, a free-text
// rationale, and the number of collaborator calls the decision itself
// consumed (zero for the tabular planner).
type Decision struct {
	Action    Action
	Rationale string
	Consumed  int
}

// Planner chooses the next action from a workflow snapshot. Implementations
// must treat the snapshot as read-only.
type Planner interface {
	Decide(ctx context.Context, snapshot state.WorkflowState) (Decision, error)
}

// TablePlanner is the deterministic priority-table policy. It is a pure
// function of the snapshot and consumes no collaborator calls.
type TablePlanner struct {
	// TargetTier is the tier at which the run is considered done.
	TargetTier int
}

// NewTablePlanner builds a table planner aiming for the given tier.
func NewTablePlanner(targetTier int) *TablePlanner {
	return &TablePlanner{TargetTier: targetTier}
}

// Decide walks the priority table top to bottom and returns the first rule
// that applies. The table is total: the fallback rule always matches.
func (p *TablePlanner) Decide(_ context.Context, snapshot state.WorkflowState) (Decision, error) {
	if snapshot.Artifact == "" {
		return Decision{Action: ActionGenerate, Rationale: "no artifact yet, generate an initial version"}, nil
	}

	if snapshot.Diagnostics != "" && snapshot.Category == "" {
		return Decision{Action: ActionAnalyze, Rationale: "uncategorized diagnostics present, analyze before fixing"}, nil
	}

	if snapshot.Diagnostics != "" && snapshot.Category != "" {
		return Decision{
			Action:    ActionGenerate,
			Rationale: fmt.Sprintf("diagnostics categorized as %q, generate a targeted fix", snapshot.Category),
		}, nil
	}

	if !snapshot.StructureValid {
		return Decision{Action: ActionValidate, Rationale: "artifact changed since last structural check, validate"}, nil
	}

	if !snapshot.InterfaceConfirmed {
		return Decision{Action: ActionGenerate, Rationale: "structure is valid but interface usage is unconfirmed, regenerate with full port usage"}, nil
	}

	if !snapshot.TestedSinceChange {
		return Decision{Action: ActionTest, Rationale: "structure and interface confirmed, run external verification"}, nil
	}

	if snapshot.LastTestFailed {
		return Decision{Action: ActionAnalyze, Rationale: "last verification run failed, analyze the failure"}, nil
	}

	if snapshot.Tier >= p.TargetTier {
		return Decision{
			Action:    ActionComplete,
			Rationale: fmt.Sprintf("reached tier %s, nothing left to improve", tier.Name(snapshot.Tier)),
		}, nil
	}

	classification := budget.Classify(snapshot.Invocations, snapshot.MaxInvocations)
	if classification.Zone == budget.ZoneRed {
		return Decision{
			Action:    ActionComplete,
			Rationale: fmt.Sprintf("budget is %s, finishing with the best artifact so far", classification),
		}, nil
	}

	return Decision{Action: ActionGenerate, Rationale: "verified artifact below target tier, attempt an improved version"}, nil
}
