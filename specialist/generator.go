package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/refinelab/refinery/core/parse"
	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/hdl"
	"github.com/refinelab/refinery/patterns/react"
)

const generatorSystemPrompt = `You are a hardware-design engineer writing synthesizable Verilog.
Use your tools to check structure and port usage before answering.
Answer with a line starting with "Final Answer:" followed by a JSON object
{"code": "<complete module source>", "notes": "<short summary>"}.`

// Generator produces or repairs the artifact through the bounded reasoning
// loop. The same specialist serves initial generation, targeted fixes after
// analysis, and interface-usage fixes; the prompt carries whichever context
// the snapshot holds.
type Generator struct {
	executor *react.Executor
	model    string
}

// NewGenerator builds a generator over the given executor.
func NewGenerator(executor *react.Executor, model string) *Generator {
	return &Generator{executor: executor, model: model}
}

// Execute runs one generation attempt. Collaborator calls are charged on every
// path, including failures. When the terminal payload carries no usable "code"
// field the raw terminal text is mined for a source block before giving up.
func (g *Generator) Execute(ctx context.Context, snapshot state.WorkflowState) state.PartialResult {
	outcome, err := g.executor.Invoke(ctx, react.Request{
		Model:        g.model,
		SystemPrompt: generatorSystemPrompt,
		Prompt:       generationPrompt(snapshot),
	})
	if err != nil {
		// A decodable source block in the raw terminal text still salvages a
		// payload-level parse failure.
		if source := hdl.ExtractSource(outcome.Raw); source != "" {
			return generated(source, outcome.Calls, "recovered source from unstructured answer")
		}
		result := state.Failure(fmt.Sprintf("generation failed: %v", err))
		result.Consumed = outcome.Calls
		return result
	}

	code := parse.StringField(outcome.Payload, "code")
	if strings.TrimSpace(code) == "" {
		code = hdl.ExtractSource(outcome.Raw)
	}
	if strings.TrimSpace(code) == "" {
		result := state.Failure("generation produced no source")
		result.Consumed = outcome.Calls
		return result
	}

	notes := parse.StringField(outcome.Payload, "notes")
	if notes == "" {
		notes = "generated artifact"
	}
	return generated(hdl.ExtractSource(code), outcome.Calls, notes)
}

func generated(source string, consumed int, summary string) state.PartialResult {
	return state.PartialResult{
		OK:       true,
		Consumed: consumed,
		Artifact: source,
		Summary:  summary,
	}
}

// generationPrompt renders the snapshot into the request text. Diagnostics and
// fix hints, when present, turn the request into a targeted repair.
func generationPrompt(snapshot state.WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", snapshot.Task)

	if snapshot.Artifact == "" {
		b.WriteString("Write a complete, synthesizable module for this task.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nCurrent source:\n%s\n", snapshot.Artifact)
	if snapshot.Diagnostics != "" {
		fmt.Fprintf(&b, "\nKnown problems (%s): %s\n", orGeneral(snapshot.Category), snapshot.Diagnostics)
	}
	if len(snapshot.Suggestions) > 0 {
		fmt.Fprintf(&b, "Fix hints: %s\n", strings.Join(snapshot.Suggestions, "; "))
	}
	if snapshot.StructureValid && !snapshot.InterfaceConfirmed {
		b.WriteString("Every declared port must be used in the module body.\n")
	}
	b.WriteString("\nProduce a corrected complete module.\n")
	return b.String()
}

func orGeneral(category string) string {
	if category == "" {
		return hdl.CategoryGeneral
	}
	return category
}
