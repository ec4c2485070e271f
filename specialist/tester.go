package specialist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
	"github.com/refinelab/refinery/hdl"
)

// Runner executes external verification against an artifact. Implementations
// wrap whatever toolchain is available; the tester only cares about the
// pass/fail outcome and the raw output.
type Runner interface {
	Run(ctx context.Context, source string) (passed bool, output string, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, source string) (bool, string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, source string) (bool, string, error) {
	return f(ctx, source)
}

// Tester drives one external verification pass through a Runner. A passing run
// proposes the verified tier; a failing run surfaces the tool output as
// diagnostics for the analyzer.
type Tester struct {
	runner Runner
}

// NewTester builds a tester over the given runner.
func NewTester(runner Runner) *Tester {
	return &Tester{runner: runner}
}

// Execute runs verification on the snapshot's artifact.
func (t *Tester) Execute(ctx context.Context, snapshot state.WorkflowState) state.PartialResult {
	if snapshot.Artifact == "" {
		return state.Failure("nothing to test: no artifact")
	}
	if t.runner == nil {
		return state.Failure("no verification runner configured")
	}

	passed, output, err := t.runner.Run(ctx, snapshot.Artifact)
	if err != nil {
		return state.Failure(fmt.Sprintf("verification runner error: %v", err))
	}

	result := state.PartialResult{
		OK:       true,
		Consumed: 1,
		Tested:   true,
	}
	if passed {
		result.TestPassed = true
		result.TierCandidate = tier.Verified
		result.HasTier = true
		result.Summary = "verification passed"
	} else {
		result.Diagnostics = output
		result.Summary = "verification failed"
	}
	return result
}

// CommandRunner verifies an artifact by writing it to a scratch directory and
// running a compiler command over it, icarus-style: exit code zero means pass,
// anything else surfaces the combined output as diagnostics.
type CommandRunner struct {
	// Command is the compiler binary, e.g. "iverilog".
	Command string

	// Args are passed before the source path.
	Args []string
}

// Run writes source to a temp file named after its module and invokes the
// configured command on it.
func (r *CommandRunner) Run(ctx context.Context, source string) (bool, string, error) {
	if r.Command == "" {
		return false, "", fmt.Errorf("no verification command configured")
	}

	dir, err := os.MkdirTemp("", "refinery-verify-")
	if err != nil {
		return false, "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := hdl.ModuleName(source)
	if name == "" {
		name = "artifact"
	}
	path := filepath.Join(dir, name+".v")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return false, "", fmt.Errorf("write source: %w", err)
	}

	args := append(append([]string(nil), r.Args...), path)
	out, err := exec.CommandContext(ctx, r.Command, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return false, output, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The toolchain rejected the source: that is a test failure, not a
			// runner error.
			return false, output, nil
		}
		return false, output, fmt.Errorf("run %s: %w", r.Command, err)
	}
	return true, output, nil
}
