// Package validation exposes the deterministic artifact checks as tools, so a
// reasoning collaborator can verify its own draft before emitting a final
// answer.
package validation

import (
	"context"

	"github.com/refinelab/refinery/hdl"
	"github.com/refinelab/refinery/providers/tool"
)

type sourceInput struct {
	Source string `json:"source" description:"Complete module source to check"`
}

// StructureTool checks a source block for the basic structural requirements:
// module/endmodule pairing, balanced parentheses and begin/end blocks.
func StructureTool() tool.GenericTool {
	return tool.New("check_structure",
		func(_ context.Context, input sourceInput) (hdl.StructureReport, error) {
			return hdl.ValidateStructure(input.Source), nil
		},
		tool.WithDescription("Checks module source for structural soundness: module/endmodule pairing, balanced parentheses and begin/end blocks."),
	)
}

// PortsTool reports declared versus used ports for a source block.
func PortsTool() tool.GenericTool {
	return tool.New("analyze_ports",
		func(_ context.Context, input sourceInput) (hdl.PortReport, error) {
			return hdl.AnalyzePorts(input.Source), nil
		},
		tool.WithDescription("Lists the declared input and output ports of a module and flags any that the body never uses."),
	)
}

// Registry bundles the validation tools for a generation-focused loop.
func Registry() *tool.Registry {
	return tool.NewRegistryWithTools(StructureTool(), PortsTool())
}
