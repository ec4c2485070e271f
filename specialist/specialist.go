// Package specialist contains the workers the engine dispatches to. All
// variants implement one contract regardless of internal strategy: the
// reasoning-backed generator drives the bounded loop, while the validator,
// tester and analyzer are deterministic functions over the snapshot.
package specialist

import (
	"context"

	"github.com/refinelab/refinery/core/state"
)

// Specialist performs one unit of work against a read-only snapshot and
// reports its effect as a partial result. Implementations fold their own
// errors into a failed result; only the engine decides what a failure means
// for the run.
type Specialist interface {
	Execute(ctx context.Context, snapshot state.WorkflowState) state.PartialResult
}

// Func adapts a plain function to the Specialist interface.
type Func func(ctx context.Context, snapshot state.WorkflowState) state.PartialResult

// Execute calls f.
func (f Func) Execute(ctx context.Context, snapshot state.WorkflowState) state.PartialResult {
	return f(ctx, snapshot)
}
