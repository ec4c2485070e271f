// Package engine owns the workflow state and the outer control loop. Each
// iteration asks the planner for an action, dispatches it to the bound
// specialist, folds the partial result into the state through one merge step,
// and walks the termination ladder. The state is never handed out mutable:
// planners and specialists see snapshots only.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/refinelab/refinery/core/budget"
	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
	"github.com/refinelab/refinery/planner"
	"github.com/refinelab/refinery/providers/observability"
	"github.com/refinelab/refinery/specialist"
)

// Defaults for construction-time configuration.
const (
	DefaultMaxInvocations   = 50
	DefaultTargetTier       = tier.Verified
	DefaultIterationCap     = 100
	DefaultFailureThreshold = 3
)

// Engine runs workflows. One Engine may serve concurrent runs: it holds no
// per-run state, and every run owns an isolated WorkflowState.
type Engine struct {
	planner     planner.Planner
	specialists map[planner.Action]specialist.Specialist
	sink        Sink
	observer    observability.Provider

	maxInvocations   int
	targetTier       int
	iterationCap     int
	perCallTimeout   time.Duration
	failureThreshold int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxInvocations sets the collaborator-invocation budget per run.
func WithMaxInvocations(n int) Option {
	return func(e *Engine) { e.maxInvocations = n }
}

// WithTargetTier sets the tier at which a run completes.
func WithTargetTier(t int) Option {
	return func(e *Engine) { e.targetTier = t }
}

// WithIterationCap bounds the number of outer-loop iterations per run.
func WithIterationCap(n int) Option {
	return func(e *Engine) { e.iterationCap = n }
}

// WithPerCallTimeout bounds each specialist dispatch. Zero means no timeout.
func WithPerCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.perCallTimeout = d }
}

// WithFailureThreshold sets how many consecutive identical-action failures
// escalate the run to Failed.
func WithFailureThreshold(n int) Option {
	return func(e *Engine) { e.failureThreshold = n }
}

// WithSink sets where the best artifact is written at the terminal state.
func WithSink(sink Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithObserver sets the observability provider.
func WithObserver(observer observability.Provider) Option {
	return func(e *Engine) { e.observer = observer }
}

// New builds an engine over a planner and an action-to-specialist map.
// Configuration is validated here; a misconfigured engine is refused rather
// than producing runs that fail late.
func New(p planner.Planner, specialists map[planner.Action]specialist.Specialist, options ...Option) (*Engine, error) {
	engine := &Engine{
		planner:          p,
		specialists:      specialists,
		maxInvocations:   DefaultMaxInvocations,
		targetTier:       DefaultTargetTier,
		iterationCap:     DefaultIterationCap,
		failureThreshold: DefaultFailureThreshold,
	}
	for _, option := range options {
		option(engine)
	}

	if engine.planner == nil {
		return nil, fmt.Errorf("engine: planner is required")
	}
	if engine.maxInvocations <= 0 {
		return nil, fmt.Errorf("engine: max invocations must be positive, got %d", engine.maxInvocations)
	}
	if !tier.Valid(engine.targetTier) {
		return nil, fmt.Errorf("engine: target tier %d outside [%d,%d]", engine.targetTier, tier.Min, tier.Max)
	}
	if engine.iterationCap <= 0 {
		return nil, fmt.Errorf("engine: iteration cap must be positive, got %d", engine.iterationCap)
	}
	if engine.failureThreshold <= 0 {
		return nil, fmt.Errorf("engine: failure threshold must be positive, got %d", engine.failureThreshold)
	}
	return engine, nil
}

// Run executes one workflow to a terminal state. Cancellation is checked at
// the top of every iteration; a cancelled run returns the best artifact found
// so far tagged Cancelled. Run never returns an error for in-run failures —
// they surface as the Failed status — only for a nil context misuse.
func (e *Engine) Run(ctx context.Context, task string) (*state.FinalResult, error) {
	st := state.New(task, e.maxInvocations)

	if e.observer != nil {
		var span observability.Span
		ctx, span = e.observer.StartSpan(ctx, observability.SpanEngineRun,
			observability.String(observability.AttrRunID, st.RunID))
		defer span.End()
	}

	iterations := 0
	for {
		if ctx.Err() != nil {
			return e.finish(ctx, st, state.StatusCancelled), nil
		}
		if st.Tier >= e.targetTier {
			return e.finish(ctx, st, state.StatusCompleted), nil
		}
		if st.Invocations >= st.MaxInvocations {
			return e.finish(ctx, st, state.StatusBudgetExhausted), nil
		}
		if iterations >= e.iterationCap {
			return e.finish(ctx, st, state.StatusIterationCapReached), nil
		}
		if st.ConsecutiveFailures >= e.failureThreshold {
			e.logWarn(ctx, "escalating after repeated identical failures",
				observability.String(observability.AttrRunAction, st.LastFailureAction),
				observability.Int("failures", st.ConsecutiveFailures))
			return e.finish(ctx, st, state.StatusFailed), nil
		}

		decision, err := e.planner.Decide(ctx, st.Snapshot())
		st.PlannerCalls++
		e.charge(st, decision.Consumed)
		if err != nil {
			if ctx.Err() != nil {
				return e.finish(ctx, st, state.StatusCancelled), nil
			}
			e.logError(ctx, "planner error", observability.Error(err))
			return e.finish(ctx, st, state.StatusFailed), nil
		}

		st.Decisions = append(st.Decisions, state.Decision{
			Action:     string(decision.Action),
			Rationale:  decision.Rationale,
			Invocation: st.Invocations,
			DecidedAt:  time.Now(),
		})

		// "complete" carries no specialist: the planner is declaring the run
		// done, either at the target tier or as a red-zone best effort.
		if decision.Action == planner.ActionComplete {
			if st.Tier >= e.targetTier {
				return e.finish(ctx, st, state.StatusCompleted), nil
			}
			return e.finish(ctx, st, state.StatusBudgetExhausted), nil
		}

		worker, bound := e.specialists[decision.Action]
		if !bound {
			e.logError(ctx, "no specialist bound to action",
				observability.String(observability.AttrRunAction, string(decision.Action)))
			return e.finish(ctx, st, state.StatusFailed), nil
		}

		result := e.dispatch(ctx, worker, st.Snapshot())
		st.SpecialistCalls++
		iterations++
		e.merge(st, decision, result)

		e.logDebug(ctx, "iteration merged",
			observability.String(observability.AttrRunAction, string(decision.Action)),
			observability.Int(observability.AttrRunTier, st.Tier),
			observability.Int(observability.AttrRunInvocations, st.Invocations),
			observability.String(observability.AttrBudgetZone, string(budget.Classify(st.Invocations, st.MaxInvocations).Zone)))
	}
}

// RunAll executes independent tasks concurrently, one isolated run each. The
// returned slice is ordered like tasks. A failed run does not cancel its
// siblings; only the first hard error is returned.
func (e *Engine) RunAll(ctx context.Context, tasks []string) ([]*state.FinalResult, error) {
	results := make([]*state.FinalResult, len(tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		group.Go(func() error {
			result, err := e.Run(groupCtx, task)
			results[i] = result
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// dispatch runs one specialist under the per-call timeout. A panic inside a
// specialist becomes a failure result, never a crashed run.
func (e *Engine) dispatch(ctx context.Context, worker specialist.Specialist, snapshot state.WorkflowState) (result state.PartialResult) {
	callCtx := ctx
	if e.perCallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.perCallTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			e.logError(ctx, "specialist panic", observability.String("panic", fmt.Sprint(r)))
			result = state.Failure(fmt.Sprintf("specialist panic: %v", r))
		}
	}()

	return worker.Execute(callCtx, snapshot)
}

// charge adds consumed invocations to the counter, clamped to the budget so
// the invariant "never exceeds max" holds even for over-reporting specialists.
func (e *Engine) charge(st *state.WorkflowState, consumed int) {
	if consumed <= 0 {
		return
	}
	st.Invocations += consumed
	if st.Invocations > st.MaxInvocations {
		st.Invocations = st.MaxInvocations
	}
}

// merge is the single mutation point of a run. It folds one partial result
// into the state: invocation charge, artifact replacement with freshness
// reset, diagnostics and categorization, validation and test flags, monotonic
// tier admission, best-artifact tracking, failure-streak accounting, and the
// scratchpad line.
func (e *Engine) merge(st *state.WorkflowState, decision planner.Decision, result state.PartialResult) {
	consumed := result.Consumed
	if consumed < 1 {
		consumed = 1
	}
	e.charge(st, consumed)

	if result.Artifact != "" && result.Artifact != st.Artifact {
		if st.Artifact != "" {
			st.ArtifactHistory = append(st.ArtifactHistory, st.Artifact)
		}
		st.Artifact = result.Artifact
		st.Diagnostics = ""
		st.Category = ""
		st.Suggestions = nil
		st.StructureValid = false
		st.InterfaceConfirmed = false
		st.TestedSinceChange = false
		st.LastTestFailed = false
		if st.BestArtifact == "" {
			st.BestArtifact = st.Artifact
			st.BestTier = st.Tier
		}
	}

	// Findings and dispatch-failure detail both land in the state diagnostics,
	// uncategorized, so the next planning pass can route them through analysis.
	// The raw text also feeds the failure streak below.
	if result.Diagnostics != "" {
		st.Diagnostics = result.Diagnostics
		st.Category = ""
		st.Suggestions = nil
	}

	if result.Category != "" {
		st.Category = result.Category
		st.Suggestions = append([]string(nil), result.Suggestions...)
		st.ErrorHistory = append(st.ErrorHistory, state.ErrorRecord{
			Category:    result.Category,
			Diagnostics: st.Diagnostics,
			Suggestions: result.Suggestions,
		})
	}

	if result.Validated {
		st.StructureValid = result.StructureValid
		st.InterfaceConfirmed = result.InterfaceConfirmed
	}
	if result.Tested {
		st.TestedSinceChange = true
		st.LastTestFailed = !result.TestPassed
	}

	if result.HasTier {
		updated := tier.Update(st.Tier, result.TierCandidate)
		if updated != st.Tier {
			st.Tier = updated
			st.TierHistory = append(st.TierHistory, updated)
		}
		// Best advances on the tier the candidate confirmed for the current
		// artifact, not on the monotonic run tier: an artifact validated only
		// at a lower tier never displaces a higher-tier best.
		confirmed := tier.Update(tier.Min, result.TierCandidate)
		if st.Artifact != "" && confirmed >= st.BestTier {
			st.BestArtifact = st.Artifact
			st.BestTier = confirmed
		}
	}

	if result.OK {
		st.ConsecutiveFailures = 0
		st.LastFailureAction = ""
		st.LastFailureReason = ""
	} else {
		action := string(decision.Action)
		if action == st.LastFailureAction && result.Diagnostics == st.LastFailureReason {
			st.ConsecutiveFailures++
		} else {
			st.ConsecutiveFailures = 1
			st.LastFailureAction = action
			st.LastFailureReason = result.Diagnostics
		}
	}

	st.Scratchpad = append(st.Scratchpad, scratchpadLine(len(st.Scratchpad)+1, decision, result))
	st.UpdatedAt = time.Now()
}

func scratchpadLine(n int, decision planner.Decision, result state.PartialResult) string {
	outcome := "ok"
	detail := result.Summary
	if !result.OK {
		outcome = "failed"
		detail = result.Diagnostics
	}
	if detail == "" {
		detail = decision.Rationale
	}
	return fmt.Sprintf("[%d] %s (%s): %s", n, decision.Action, outcome, detail)
}

// finish seals the run: picks the best artifact, writes it to the sink exactly
// once, and builds the final result.
func (e *Engine) finish(ctx context.Context, st *state.WorkflowState, status state.Status) *state.FinalResult {
	artifact := st.BestArtifact
	if artifact == "" {
		artifact = st.Artifact
	}

	elapsed := time.Since(st.StartedAt)
	if e.sink != nil && artifact != "" {
		metadata := Metadata{
			RunID:       st.RunID,
			Status:      status,
			Tier:        st.BestTier,
			Invocations: st.Invocations,
			Elapsed:     elapsed,
		}
		// Sink failures are reported but do not change the run outcome.
		if err := e.sink.Write(context.WithoutCancel(ctx), artifact, metadata); err != nil {
			e.logError(ctx, "artifact sink write failed", observability.Error(err))
		}
	}

	if e.observer != nil {
		e.observer.Counter("engine.runs").Add(ctx, 1,
			observability.String(observability.AttrRunStatus, string(status)))
		e.observer.Histogram("engine.run.duration").Record(ctx, elapsed.Seconds(),
			observability.String(observability.AttrRunStatus, string(status)))
		if span := observability.SpanFromContext(ctx); span != nil {
			span.SetAttributes(
				observability.String(observability.AttrRunStatus, string(status)),
				observability.Int(observability.AttrRunTier, st.Tier),
				observability.Int(observability.AttrRunInvocations, st.Invocations))
		}
	}
	e.logInfo(ctx, "run finished",
		observability.String(observability.AttrRunID, st.RunID),
		observability.String(observability.AttrRunStatus, string(status)),
		observability.Int(observability.AttrRunTier, st.Tier),
		observability.Int(observability.AttrRunInvocations, st.Invocations))

	return &state.FinalResult{
		RunID:       st.RunID,
		Status:      status,
		Artifact:    artifact,
		Tier:        st.BestTier,
		Invocations: st.Invocations,
		Scratchpad:  append([]string(nil), st.Scratchpad...),
		Decisions:   append([]state.Decision(nil), st.Decisions...),
		Elapsed:     elapsed,
	}
}

func (e *Engine) logDebug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if e.observer != nil {
		e.observer.Debug(ctx, msg, attrs...)
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if e.observer != nil {
		e.observer.Info(ctx, msg, attrs...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if e.observer != nil {
		e.observer.Warn(ctx, msg, attrs...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if e.observer != nil {
		e.observer.Error(ctx, msg, attrs...)
	}
}
