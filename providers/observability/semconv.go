package observability

// Semantic conventions for observability attributes. These constants define
// standard attribute names to keep spans and events consistent across the
// engine, the reasoning executor and the tool registry.

// --- Tool execution attributes ---

const (
	// AttrToolName is the name of the tool being executed.
	AttrToolName = "tool.name"

	// AttrToolInput is the tool input (serialized).
	AttrToolInput = "tool.input"

	// AttrToolOutput is the tool output (serialized).
	AttrToolOutput = "tool.output"

	// AttrToolError is the tool error message, when execution failed.
	AttrToolError = "tool.error"

	// AttrToolDuration is the wall-clock duration of the tool call.
	AttrToolDuration = "tool.duration"
)

// --- Run attributes ---

const (
	// AttrRunID identifies the workflow run.
	AttrRunID = "run.id"

	// AttrRunAction is the action dispatched in the current loop iteration.
	AttrRunAction = "run.action"

	// AttrRunTier is the quality tier stored after a merge step.
	AttrRunTier = "run.tier"

	// AttrRunInvocations is the invocation counter after a merge step.
	AttrRunInvocations = "run.invocations"

	// AttrRunStatus is the terminal status of a run.
	AttrRunStatus = "run.status"

	// AttrBudgetZone is the budget zone after a merge step.
	AttrBudgetZone = "budget.zone"
)

// --- Reasoning loop attributes ---

const (
	// AttrReactStep is the 1-based step index inside one bounded reasoning loop.
	AttrReactStep = "react.step"

	// AttrReactCalls is the number of collaborator calls one invoke consumed.
	AttrReactCalls = "react.calls"
)

// Span and event names.
const (
	SpanEngineRun   = "engine.run"
	SpanReactInvoke = "react.invoke"

	EventToolExecutionStart = "tool.execution.start"
	EventToolExecutionEnd   = "tool.execution.end"
	EventMalformedStep      = "react.step.malformed"
	EventTerminalAnswer     = "react.step.terminal"
)
