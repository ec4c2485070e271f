package state

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle status of a workflow run.
type Status string

const (
	// StatusIdle indicates the run has not started yet.
	StatusIdle Status = "idle"

	// StatusRunning indicates the run is currently executing.
	StatusRunning Status = "running"

	// StatusCompleted indicates the run reached the target quality tier.
	StatusCompleted Status = "completed"

	// StatusBudgetExhausted indicates the run consumed its full invocation budget.
	StatusBudgetExhausted Status = "budget_exhausted"

	// StatusIterationCapReached indicates the outer loop hit its iteration cap.
	StatusIterationCapReached Status = "iteration_cap_reached"

	// StatusCancelled indicates the run was stopped by an external cancellation signal.
	StatusCancelled Status = "cancelled"

	// StatusFailed indicates the run was escalated to failure, either because an
	// action had no bound specialist or because the same action kept failing for
	// the same reason.
	StatusFailed Status = "failed"
)

// Decision records one planner choice. It is created by the planner, appended to
// the workflow state by the engine, and immutable thereafter.
type Decision struct {
	// Action is the chosen action name from the planner vocabulary.
	Action string `json:"action"`

	// Rationale is the planner's free-text justification for the choice.
	Rationale string `json:"rationale"`

	// Invocation is the invocation counter value at the time of the decision,
	// serving as the state snapshot reference.
	Invocation int `json:"invocation"`

	// DecidedAt is the wall-clock time of the decision.
	DecidedAt time.Time `json:"decided_at"`
}

// ErrorRecord is one categorized diagnostic entry in the error history.
type ErrorRecord struct {
	Category    string   `json:"category"`
	Diagnostics string   `json:"diagnostics"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// PartialResult is the output of a single specialist invocation. It is consumed
// exactly once by the engine's merge step and then discarded; its effect is
// folded into the WorkflowState.
type PartialResult struct {
	// OK reports whether the specialist's unit of work succeeded.
	OK bool

	// Consumed is the number of reasoning-collaborator invocations this dispatch
	// used. The engine charges at least one invocation even when zero is reported.
	Consumed int

	// Diagnostics carries failure detail or validation/test feedback.
	Diagnostics string

	// TierCandidate proposes a quality tier for the current artifact. It is only
	// meaningful when HasTier is set; the tier gate keeps the stored tier
	// monotonic regardless of the candidate value.
	TierCandidate int
	HasTier       bool

	// Artifact is a newly produced artifact text. Empty means the specialist did
	// not produce one.
	Artifact string

	// Category is a diagnostic category assigned by the analyzer.
	Category string

	// Suggestions are fix hints attached to a categorized diagnostic.
	Suggestions []string

	// Validated marks that a structural validation pass ran, with its findings.
	Validated          bool
	StructureValid     bool
	InterfaceConfirmed bool

	// Tested marks that an external verification pass ran, with its outcome.
	Tested     bool
	TestPassed bool

	// Summary is an optional human-readable fragment for the scratchpad line.
	Summary string
}

// Failure builds a failed PartialResult carrying a diagnostic. Consumed defaults
// to one so that failed dispatches still count against the budget.
func Failure(diagnostics string) PartialResult {
	return PartialResult{OK: false, Consumed: 1, Diagnostics: diagnostics}
}

// WorkflowState is the single mutable record threaded through a run. It is owned
// exclusively by the engine: every other component receives a Snapshot and
// returns a PartialResult, and all mutation happens in the engine's merge step.
type WorkflowState struct {
	// RunID uniquely identifies this run.
	RunID string

	// Task is the original task description.
	Task string

	// Artifact is the latest artifact text; ArtifactHistory keeps prior versions
	// in order.
	Artifact        string
	ArtifactHistory []string

	// BestArtifact is the artifact tied to the highest tier ever reached. A later
	// lower-tier candidate never overwrites it.
	BestArtifact string
	BestTier     int

	// Diagnostics is the latest diagnostic text; Category its analyzer-assigned
	// category, empty until categorized. ErrorHistory keeps categorized entries.
	Diagnostics  string
	Category     string
	Suggestions  []string
	ErrorHistory []ErrorRecord

	// Tier is the current quality tier, non-decreasing across the run.
	// TierHistory records every stored tier value in order.
	Tier        int
	TierHistory []int

	// Invocations counts consumed reasoning-collaborator calls; it never exceeds
	// MaxInvocations.
	Invocations    int
	MaxInvocations int

	// Validation/test freshness flags relative to the latest artifact change.
	StructureValid     bool
	InterfaceConfirmed bool
	TestedSinceChange  bool
	LastTestFailed     bool

	// Consecutive-failure tracking for escalation: the streak only grows while
	// the same action fails for the same reason.
	ConsecutiveFailures int
	LastFailureAction   string
	LastFailureReason   string

	// Scratchpad is the append-only human-readable action log. Its length equals
	// the number of completed action dispatches.
	Scratchpad []string

	// Decisions is the ordered list of planner decisions.
	Decisions []Decision

	// Per-role call counters.
	PlannerCalls    int
	SpecialistCalls int

	StartedAt time.Time
	UpdatedAt time.Time
}

// New creates the initial state for a run.
func New(task string, maxInvocations int) *WorkflowState {
	now := time.Now()
	return &WorkflowState{
		RunID:          uuid.NewString(),
		Task:           task,
		MaxInvocations: maxInvocations,
		StartedAt:      now,
		UpdatedAt:      now,
	}
}

// Snapshot returns a deep value copy of the state. Components outside the engine
// only ever see snapshots, so they cannot mutate the run.
func (s *WorkflowState) Snapshot() WorkflowState {
	snapshot := *s
	snapshot.ArtifactHistory = append([]string(nil), s.ArtifactHistory...)
	snapshot.Suggestions = append([]string(nil), s.Suggestions...)
	snapshot.ErrorHistory = append([]ErrorRecord(nil), s.ErrorHistory...)
	snapshot.TierHistory = append([]int(nil), s.TierHistory...)
	snapshot.Scratchpad = append([]string(nil), s.Scratchpad...)
	snapshot.Decisions = append([]Decision(nil), s.Decisions...)
	return snapshot
}

// FinalResult is returned by the engine at any terminal state.
type FinalResult struct {
	RunID       string     `json:"run_id"`
	Status      Status     `json:"status"`
	Artifact    string     `json:"artifact"`
	Tier        int        `json:"tier"`
	Invocations int        `json:"invocations"`
	Scratchpad  []string   `json:"scratchpad"`
	Decisions   []Decision `json:"decisions"`
	Elapsed     time.Duration
}
