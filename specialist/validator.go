package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
	"github.com/refinelab/refinery/hdl"
)

// Validator is the deterministic structural and interface check. It never
// talks to a collaborator; its single consumed invocation is the flat cost of
// an action dispatch.
type Validator struct{}

// NewValidator returns the stateless validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Execute checks the snapshot's artifact: structural soundness first, then
// whether every declared port is used. Findings land in the diagnostics so the
// next planning pass routes them through analysis.
func (v *Validator) Execute(_ context.Context, snapshot state.WorkflowState) state.PartialResult {
	if snapshot.Artifact == "" {
		return state.Failure("nothing to validate: no artifact")
	}

	structure := hdl.ValidateStructure(snapshot.Artifact)
	if !structure.Valid {
		return state.PartialResult{
			OK:          true,
			Consumed:    1,
			Validated:   true,
			Diagnostics: "structural issues: " + strings.Join(structure.Issues, "; "),
			Summary:     fmt.Sprintf("structure check failed (%d issues)", len(structure.Issues)),
		}
	}

	ports := hdl.AnalyzePorts(snapshot.Artifact)
	result := state.PartialResult{
		OK:             true,
		Consumed:       1,
		Validated:      true,
		StructureValid: true,
		TierCandidate:  tier.Structural,
		HasTier:        true,
		Summary:        "structure check passed",
	}
	if ports.AllUsed {
		result.InterfaceConfirmed = true
		result.TierCandidate = tier.Interface
		result.Summary = "structure and interface checks passed"
	} else {
		// Unused ports are not an error condition; the next generate pass fixes
		// them, so they ride in the summary rather than the diagnostics.
		result.Summary = "structure passed, interface incomplete: " + ports.Feedback
	}
	return result
}
