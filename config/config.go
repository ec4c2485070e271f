// Package config loads engine configuration: compiled-in defaults, overridden
// by an optional YAML file, overridden by environment variables. A .env file
// next to the process is honoured for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/refinelab/refinery/core/tier"
)

// Defaults.
const (
	DefaultModel              = "gpt-4o-mini"
	DefaultMaxInvocations     = 50
	DefaultTargetTier         = tier.Verified
	DefaultIterationCap       = 100
	DefaultFailureThreshold   = 3
	DefaultReactMaxIterations = 5
	DefaultPerCallTimeout     = 2 * time.Minute
	DefaultStepTimeout        = 45 * time.Second
	DefaultOutputDir          = "artifacts"
)

// Duration accepts Go duration strings ("45s", "2m") in YAML, which the plain
// time.Duration decoder does not.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full engine configuration. The API key is never read from
// YAML; it comes from the environment only.
type Config struct {
	// Model is the reasoning-collaborator model identifier.
	Model string `yaml:"model"`

	// BaseURL overrides the collaborator endpoint; empty uses the provider default.
	BaseURL string `yaml:"base_url"`

	// MaxInvocations is the collaborator-call budget per run.
	MaxInvocations int `yaml:"max_invocations"`

	// TargetTier is the quality tier at which a run completes.
	TargetTier int `yaml:"target_tier"`

	// IterationCap bounds the outer loop.
	IterationCap int `yaml:"iteration_cap"`

	// FailureThreshold is the consecutive identical-failure count that fails a run.
	FailureThreshold int `yaml:"failure_threshold"`

	// ReactMaxIterations bounds the inner reasoning loop.
	ReactMaxIterations int `yaml:"react_max_iterations"`

	// PerCallTimeout bounds one specialist dispatch.
	PerCallTimeout Duration `yaml:"per_call_timeout"`

	// StepTimeout bounds one inner-loop step.
	StepTimeout Duration `yaml:"step_timeout"`

	// ReasoningPlanner switches planning from the priority table to the
	// collaborator-backed planner.
	ReasoningPlanner bool `yaml:"reasoning_planner"`

	// OutputDir is where the artifact sink writes.
	OutputDir string `yaml:"output_dir"`

	// VerifyCommand and VerifyArgs configure the external verification runner,
	// e.g. "iverilog" with "-o /dev/null". Empty disables real verification.
	VerifyCommand string   `yaml:"verify_command"`
	VerifyArgs    []string `yaml:"verify_args"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Model:              DefaultModel,
		MaxInvocations:     DefaultMaxInvocations,
		TargetTier:         DefaultTargetTier,
		IterationCap:       DefaultIterationCap,
		FailureThreshold:   DefaultFailureThreshold,
		ReactMaxIterations: DefaultReactMaxIterations,
		PerCallTimeout:     Duration(DefaultPerCallTimeout),
		StepTimeout:        Duration(DefaultStepTimeout),
		OutputDir:          DefaultOutputDir,
	}
}

// Load builds the configuration: defaults, then the YAML file at path when
// path is non-empty, then environment variables. A .env file is loaded first
// when present; a missing .env is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays REFINERY_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REFINERY_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REFINERY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("REFINERY_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("REFINERY_VERIFY_COMMAND"); v != "" {
		cfg.VerifyCommand = v
	}
	setIntEnv("REFINERY_MAX_INVOCATIONS", &cfg.MaxInvocations)
	setIntEnv("REFINERY_TARGET_TIER", &cfg.TargetTier)
	setIntEnv("REFINERY_ITERATION_CAP", &cfg.IterationCap)
	setIntEnv("REFINERY_FAILURE_THRESHOLD", &cfg.FailureThreshold)
	setIntEnv("REFINERY_REACT_MAX_ITERATIONS", &cfg.ReactMaxIterations)
	setDurationEnv("REFINERY_PER_CALL_TIMEOUT", &cfg.PerCallTimeout)
	setDurationEnv("REFINERY_STEP_TIMEOUT", &cfg.StepTimeout)
	if v := os.Getenv("REFINERY_REASONING_PLANNER"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.ReasoningPlanner = parsed
		}
	}
}

func setIntEnv(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setDurationEnv(key string, target *Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = Duration(parsed)
		}
	}
}

// Validate checks the invariants the engine relies on.
func (c Config) Validate() error {
	if c.MaxInvocations <= 0 {
		return fmt.Errorf("config: max_invocations must be positive, got %d", c.MaxInvocations)
	}
	if !tier.Valid(c.TargetTier) {
		return fmt.Errorf("config: target_tier %d outside [%d,%d]", c.TargetTier, tier.Min, tier.Max)
	}
	if c.IterationCap <= 0 {
		return fmt.Errorf("config: iteration_cap must be positive, got %d", c.IterationCap)
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("config: failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.ReactMaxIterations <= 0 {
		return fmt.Errorf("config: react_max_iterations must be positive, got %d", c.ReactMaxIterations)
	}
	if c.Model == "" {
		return fmt.Errorf("config: model must not be empty")
	}
	return nil
}
