// Package analysis exposes the budget classifier and the diagnostic
// categorizer as tools. This is the full tool set of the reasoning-backed
// planner: enough to judge remaining capacity and triage errors, nothing that
// mutates anything.
package analysis

import (
	"context"

	"github.com/refinelab/refinery/core/budget"
	"github.com/refinelab/refinery/hdl"
	"github.com/refinelab/refinery/providers/tool"
)

type budgetInput struct {
	Used int `json:"used" description:"Invocations consumed so far"`
	Max  int `json:"max" description:"Total invocation budget"`
}

type budgetOutput struct {
	Zone           string `json:"zone"`
	Remaining      int    `json:"remaining"`
	Recommendation string `json:"recommendation"`
}

// BudgetTool classifies remaining invocation capacity into a zone with a
// strategy recommendation.
func BudgetTool() tool.GenericTool {
	return tool.New("budget_status",
		func(_ context.Context, input budgetInput) (budgetOutput, error) {
			c := budget.Classify(input.Used, input.Max)
			return budgetOutput{
				Zone:           string(c.Zone),
				Remaining:      c.Remaining,
				Recommendation: c.Recommendation,
			}, nil
		},
		tool.WithDescription("Classifies the remaining invocation budget into green, yellow or red with a strategy recommendation."),
	)
}

type categorizeInput struct {
	Diagnostics string `json:"diagnostics" description:"Raw error or verification output"`
}

type categorizeOutput struct {
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Suggestions []string `json:"suggestions"`
}

// CategorizeTool maps raw diagnostic text to a category with fix hints.
func CategorizeTool() tool.GenericTool {
	return tool.New("categorize_error",
		func(_ context.Context, input categorizeInput) (categorizeOutput, error) {
			category := hdl.CategorizeDiagnostics(input.Diagnostics)
			return categorizeOutput{
				Category:    category,
				Priority:    hdl.Priority(category),
				Suggestions: hdl.Suggestions(category),
			}, nil
		},
		tool.WithDescription("Categorizes raw error output (syntax, undeclared, type, width, latch, timing or general) and returns fix hints."),
	)
}

// Registry bundles the analysis tools for a planning-focused loop.
func Registry() *tool.Registry {
	return tool.NewRegistryWithTools(BudgetTool(), CategorizeTool())
}
