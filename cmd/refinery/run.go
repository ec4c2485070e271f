package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/refinelab/refinery/config"
	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/core/tier"
	"github.com/refinelab/refinery/engine"
	"github.com/refinelab/refinery/hdl"
	"github.com/refinelab/refinery/patterns/react"
	"github.com/refinelab/refinery/planner"
	"github.com/refinelab/refinery/providers/ai"
	"github.com/refinelab/refinery/providers/ai/openai"
	obslog "github.com/refinelab/refinery/providers/observability/slog"
	"github.com/refinelab/refinery/providers/tool/analysis"
	"github.com/refinelab/refinery/providers/tool/reference"
	"github.com/refinelab/refinery/providers/tool/validation"
	"github.com/refinelab/refinery/specialist"
)

var runCmd = &cobra.Command{
	Use:   "run <task> [task...]",
	Short: "Run one workflow per task description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		results, err := eng.RunAll(ctx, args)
		for i, result := range results {
			if result == nil {
				continue
			}
			printResult(cmd, args[i], result)
		}
		return err
	},
}

// buildEngine wires the full stack from configuration: provider, tool
// registries, reasoning executors, specialists, planner, sink and observer.
func buildEngine(cfg config.Config) (*engine.Engine, error) {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	observer := obslog.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var provider ai.Provider = openai.New()
	if cfg.BaseURL != "" {
		provider = provider.WithBaseURL(cfg.BaseURL)
	}

	reactOptions := []react.Option{
		react.WithMaxIterations(cfg.ReactMaxIterations),
		react.WithStepTimeout(time.Duration(cfg.StepTimeout)),
	}

	generationTools := validation.Registry()
	generationTools.Add(reference.FetchTool())
	generatorExec := react.New(provider, generationTools, reactOptions...)

	var decider planner.Planner = planner.NewTablePlanner(cfg.TargetTier)
	if cfg.ReasoningPlanner {
		plannerExec := react.New(provider, analysis.Registry(), reactOptions...)
		decider = planner.NewReasoningPlanner(plannerExec, cfg.TargetTier, cfg.Model)
	}

	specialists := map[planner.Action]specialist.Specialist{
		planner.ActionGenerate: specialist.NewGenerator(generatorExec, cfg.Model),
		planner.ActionValidate: specialist.NewValidator(),
		planner.ActionAnalyze:  specialist.NewAnalyzer(),
		planner.ActionTest:     specialist.NewTester(verificationRunner(cfg)),
	}

	return engine.New(decider, specialists,
		engine.WithMaxInvocations(cfg.MaxInvocations),
		engine.WithTargetTier(cfg.TargetTier),
		engine.WithIterationCap(cfg.IterationCap),
		engine.WithFailureThreshold(cfg.FailureThreshold),
		engine.WithPerCallTimeout(time.Duration(cfg.PerCallTimeout)),
		engine.WithSink(&engine.FileSink{Dir: cfg.OutputDir}),
		engine.WithObserver(observer),
	)
}

// verificationRunner picks the external toolchain when one is configured and
// otherwise falls back to the local static checks, so runs stay useful on
// machines without a compiler installed.
func verificationRunner(cfg config.Config) specialist.Runner {
	if cfg.VerifyCommand != "" {
		return &specialist.CommandRunner{Command: cfg.VerifyCommand, Args: cfg.VerifyArgs}
	}
	return specialist.RunnerFunc(func(_ context.Context, source string) (bool, string, error) {
		if report := hdl.ValidateStructure(source); !report.Valid {
			return false, "static check: " + strings.Join(report.Issues, "; "), nil
		}
		if ports := hdl.AnalyzePorts(source); !ports.AllUsed {
			return false, "static check: " + ports.Feedback, nil
		}
		return true, "static checks passed (no external toolchain configured)", nil
	})
}

func printResult(cmd *cobra.Command, task string, result *state.FinalResult) {
	cmd.Printf("task: %s\n", task)
	cmd.Printf("  run: %s\n", result.RunID)
	cmd.Printf("  status: %s, tier: %s, invocations: %d, elapsed: %s\n",
		result.Status, tier.Name(result.Tier), result.Invocations, result.Elapsed.Round(time.Millisecond))
	if flagVerbose {
		for _, line := range result.Scratchpad {
			cmd.Printf("  %s\n", line)
		}
	}
	if result.Artifact == "" {
		cmd.Println("  no artifact produced")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Artifact)
}
