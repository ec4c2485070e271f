// Package tool provides typed, callable capabilities and the validating
// registry the reasoning loop dispatches tool directives through.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/refinelab/refinery/internal/jsonschema"
	"github.com/refinelab/refinery/providers/ai"
	"github.com/refinelab/refinery/providers/observability"
)

// Tool binds a name and description to a strongly-typed Go function and
// derives the JSON schema for its input type I via reflection.
// Use [New] to construct a Tool; [GenericTool] is the provider-agnostic view.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool is the provider-agnostic interface for all tools. It abstracts
// over the concrete generic type parameters of [Tool] so tools can be stored
// and dispatched without knowing their exact input/output types.
type GenericTool interface {
	// ToolInfo returns the metadata (name, description, parameter schema) used
	// to advertise this tool to a reasoning collaborator.
	ToolInfo() ai.ToolDescription

	// Call invokes the tool with a JSON-encoded input string and returns a
	// JSON-encoded output string. Returns an error if parsing or execution
	// fails.
	Call(ctx context.Context, inputJson string) (string, error)
}

// funcToolOptions holds optional configuration for a tool created via [New].
type funcToolOptions struct {
	Description string
}

// WithDescription sets a human-readable description for the tool. The
// collaborator sees this description when deciding whether to invoke the tool.
func WithDescription(description string) func(tool *funcToolOptions) {
	return func(s *funcToolOptions) {
		s.Description = description
	}
}

// New constructs a [Tool] with the given name and handler function. The JSON
// schema for the input type I is derived automatically via reflection.
//
// Example:
//
//	statusTool := tool.New("budget_status", classifyFunc,
//	    tool.WithDescription("Classifies remaining invocation budget into a zone."),
//	)
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(tool *funcToolOptions)) *Tool[I, O] {
	toolOptions := &funcToolOptions{}
	for _, option := range options {
		option(toolOptions)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: toolOptions.Description,
		Parameters:  jsonschema.Generate[I](),
		Function:    function,
	}
}

// ToolInfo returns the [ai.ToolDescription] used to advertise this tool.
func (t *Tool[I, O]) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call invokes the tool's underlying function with the given JSON-encoded
// input. Almost-JSON input is repaired once before decoding fails, since
// collaborators routinely emit single quotes and trailing commas.
// Observability span events are emitted when a span is present in ctx.
func (t *Tool[I, O]) Call(ctx context.Context, inputJson string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, t.Name),
			observability.String(observability.AttrToolInput, inputJson),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()

	parsedInput, err := decodeInput[I](inputJson)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetAttributes(observability.String(observability.AttrToolError, err.Error()))
		}
		return "", err
	}

	output, err := t.Function(ctx, parsedInput)
	duration := time.Since(start)

	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetAttributes(
				observability.String(observability.AttrToolError, err.Error()),
				observability.Duration(observability.AttrToolDuration, duration),
			)
		}
		return "", err
	}

	outputBytes, err := json.Marshal(output)
	if err != nil {
		if span != nil {
			span.RecordError(err)
		}
		return "", err
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrToolOutput, string(outputBytes)),
			observability.Duration(observability.AttrToolDuration, duration),
		)
	}

	return string(outputBytes), nil
}

// decodeInput unmarshals a JSON input string into the tool's input type,
// repairing the JSON once when the strict decode fails.
func decodeInput[I any](inputJson string) (I, error) {
	var input I
	if inputJson == "" {
		inputJson = "{}"
	}
	if err := json.Unmarshal([]byte(inputJson), &input); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(inputJson)
		if repairErr != nil {
			return input, fmt.Errorf("failed to decode tool input: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &input); err != nil {
			return input, fmt.Errorf("failed to decode repaired tool input: %w", err)
		}
	}
	return input, nil
}
