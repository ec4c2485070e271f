// Package react implements the bounded reason-act-observe loop. Given a
// context snapshot, a tool registry and an iteration cap, it drives repeated
// collaborator calls until a terminal answer arrives or the cap or a timeout
// cuts the loop off. The executor has no knowledge of domain semantics; every
// reasoning-backed specialist reuses it as-is.
package react

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/refinelab/refinery/core/parse"
	"github.com/refinelab/refinery/providers/ai"
	"github.com/refinelab/refinery/providers/observability"
	"github.com/refinelab/refinery/providers/tool"
)

const (
	// DefaultMaxIterations bounds the inner loop when no explicit cap is set.
	DefaultMaxIterations = 5

	// FinalAnswerMarker is the terminal marker a collaborator emits when it is
	// done reasoning. The text after the marker is handed to the output parser.
	FinalAnswerMarker = "Final Answer:"

	// correctiveInstruction is appended to the transcript after a malformed
	// step, i.e. a response that is neither a tool directive nor terminal.
	correctiveInstruction = `Your last response was neither a tool call nor a final answer. ` +
		`Either call one of the available tools, or finish with a line starting with "Final Answer:" followed by a JSON object.`
)

// Request is one executor invocation: an already-serialized context snapshot
// plus an optional system prompt and model override. The engine keeps the
// serialization format opaque.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
}

// Step is one transcript entry: the collaborator's reasoning text plus either
// a tool directive with its observation, a terminal marker, or a
// malformed-step event.
type Step struct {
	Reasoning   string
	Tool        string
	Input       string
	Observation string
	Terminal    bool
	Malformed   bool
}

// Outcome reports what one Invoke call produced. Calls counts collaborator
// requests issued and is valid even when Invoke returns an error, so callers
// can charge the consumed budget on every path.
type Outcome struct {
	// Payload is the structured terminal result, nil on failure.
	Payload map[string]any

	// Raw is the free text that accompanied the terminal marker.
	Raw string

	// Calls is the number of collaborator requests issued.
	Calls int

	// Transcript is the ordered reason/act/observe record. It exists only for
	// this invocation; the executor keeps no state between calls.
	Transcript []Step
}

// Executor drives the bounded loop against one provider and one tool registry.
type Executor struct {
	provider      ai.Provider
	registry      *tool.Registry
	maxIterations int
	stepTimeout   time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxIterations caps the number of loop steps. Values below one fall back
// to the default.
func WithMaxIterations(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithStepTimeout bounds each collaborator request plus its tool calls. Zero
// means no per-step timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.stepTimeout = d
	}
}

// New creates an executor over the given provider and tool registry.
func New(provider ai.Provider, registry *tool.Registry, options ...Option) *Executor {
	executor := &Executor{
		provider:      provider,
		registry:      registry,
		maxIterations: DefaultMaxIterations,
	}
	for _, option := range options {
		option(executor)
	}
	return executor
}

// Invoke runs the loop until a terminal answer, the iteration cap, a per-step
// timeout, or cancellation. The returned Outcome is non-nil on every path and
// its Calls field must be charged by the caller regardless of the error.
//
// Failure modes surface as *parse.Failure values: "iteration_limit" when the
// cap is exhausted without a terminal marker, "timeout" when a step exceeds
// the per-step timeout, and "no_structured_payload" when the terminal text
// contains no decodable payload. Cancellation returns the context error.
func (e *Executor) Invoke(ctx context.Context, request Request) (*Outcome, error) {
	outcome := &Outcome{}

	span := observability.SpanFromContext(ctx)
	messages := []ai.Message{{Role: ai.RoleUser, Content: request.Prompt}}

	for step := 1; step <= e.maxIterations; step++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		// One deadline spans the whole step: the collaborator request plus any
		// tool invocations it directed, so a hanging tool cannot stall the loop.
		stepCtx, cancel := e.stepContext(ctx)

		response, err := e.sendStep(stepCtx, request, messages)
		outcome.Calls++
		if err != nil {
			cancel()
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return outcome, parse.NewFailure(parse.ReasonTimeout, fmt.Sprintf("step %d exceeded the per-step timeout", step))
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome, ctxErr
			}
			return outcome, fmt.Errorf("collaborator request failed at step %d: %w", step, err)
		}

		// Tool directive path.
		if len(response.ToolCalls) > 0 {
			messages = append(messages, ai.Message{
				Role:      ai.RoleAssistant,
				Content:   response.Content,
				ToolCalls: response.ToolCalls,
			})
			reasoning := response.Content
			for _, call := range response.ToolCalls {
				observation := e.observe(stepCtx, call)
				outcome.Transcript = append(outcome.Transcript, Step{
					Reasoning:   reasoning,
					Tool:        call.Function.Name,
					Input:       call.Function.Arguments,
					Observation: observation,
				})
				reasoning = ""
				messages = append(messages, ai.Message{
					Role:       ai.RoleTool,
					Content:    observation,
					ToolCallID: call.ID,
					Name:       call.Function.Name,
				})
			}
			cancel()
			continue
		}
		cancel()

		// Terminal marker path.
		if terminal, found := terminalText(response.Content); found {
			outcome.Raw = terminal
			outcome.Transcript = append(outcome.Transcript, Step{
				Reasoning: response.Content,
				Terminal:  true,
			})
			if span != nil {
				span.AddEvent(observability.EventTerminalAnswer, observability.Int(observability.AttrReactStep, step))
			}

			payload, err := parse.Extract(terminal)
			if err != nil {
				return outcome, err
			}
			outcome.Payload = payload
			return outcome, nil
		}

		// Neither recognized: record a malformed step, append a corrective
		// instruction, and let the step count toward the cap.
		outcome.Transcript = append(outcome.Transcript, Step{
			Reasoning: response.Content,
			Malformed: true,
		})
		if span != nil {
			span.AddEvent(observability.EventMalformedStep, observability.Int(observability.AttrReactStep, step))
		}
		messages = append(messages,
			ai.Message{Role: ai.RoleAssistant, Content: response.Content},
			ai.Message{Role: ai.RoleUser, Content: correctiveInstruction},
		)
	}

	return outcome, parse.NewFailure(parse.ReasonIterationLimit, fmt.Sprintf("no terminal answer after %d steps", e.maxIterations))
}

// stepContext derives the per-step deadline context. With no timeout
// configured the parent context is used as-is.
func (e *Executor) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.stepTimeout > 0 {
		return context.WithTimeout(ctx, e.stepTimeout)
	}
	return ctx, func() {}
}

// sendStep issues exactly one collaborator request.
func (e *Executor) sendStep(ctx context.Context, request Request, messages []ai.Message) (*ai.ChatResponse, error) {
	var descriptions []ai.ToolDescription
	if e.registry != nil {
		descriptions = e.registry.Descriptions()
	}

	return e.provider.SendMessage(ctx, ai.ChatRequest{
		Model:        request.Model,
		SystemPrompt: request.SystemPrompt,
		Messages:     messages,
		Tools:        descriptions,
	})
}

// observe dispatches one tool directive through the registry and folds any
// lookup, validation or execution error into a textual observation. Nothing a
// tool does can abort the loop.
func (e *Executor) observe(ctx context.Context, call ai.ToolCall) string {
	if e.registry == nil {
		return "error: no tools available"
	}
	output, err := e.registry.Invoke(ctx, call.Function.Name, call.Function.Arguments)
	if err != nil {
		return "error: " + err.Error()
	}
	return output
}

// terminalText finds the terminal marker (case-insensitive) and returns the
// text after it.
func terminalText(content string) (string, bool) {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, strings.ToLower(FinalAnswerMarker))
	if idx == -1 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len(FinalAnswerMarker):]), true
}
