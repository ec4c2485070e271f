package specialist

import (
	"context"
	"fmt"

	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/hdl"
)

// Analyzer categorizes the snapshot's diagnostics and attaches fix hints. It
// is a pure keyword classifier; no collaborator is involved.
type Analyzer struct{}

// NewAnalyzer returns the stateless analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Execute assigns a category and suggestions to the pending diagnostics.
func (a *Analyzer) Execute(_ context.Context, snapshot state.WorkflowState) state.PartialResult {
	if snapshot.Diagnostics == "" {
		return state.Failure("nothing to analyze: no diagnostics")
	}

	category := hdl.CategorizeDiagnostics(snapshot.Diagnostics)
	return state.PartialResult{
		OK:          true,
		Consumed:    1,
		Category:    category,
		Suggestions: hdl.Suggestions(category),
		Summary:     fmt.Sprintf("categorized diagnostics as %s (priority %s)", category, hdl.Priority(category)),
	}
}
