package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/refinelab/refinery/core/state"
	"github.com/refinelab/refinery/hdl"
)

// Metadata accompanies the artifact handed to a sink at the end of a run.
type Metadata struct {
	RunID       string        `json:"run_id"`
	Status      state.Status  `json:"status"`
	Tier        int           `json:"tier"`
	Invocations int           `json:"invocations"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Sink receives the best artifact exactly once, at the terminal state of a
// run. Implementations decide where it goes; the engine never reads it back.
type Sink interface {
	Write(ctx context.Context, artifact string, metadata Metadata) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, artifact string, metadata Metadata) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, artifact string, metadata Metadata) error {
	return f(ctx, artifact, metadata)
}

// FileSink stores artifacts on disk: one source file named after the declared
// module plus a metadata JSON next to it, both keyed by run ID.
type FileSink struct {
	// Dir is the output directory, created on first write.
	Dir string
}

// Write stores the artifact and its metadata under the sink directory.
func (s *FileSink) Write(_ context.Context, artifact string, metadata Metadata) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create sink dir: %w", err)
	}

	name := hdl.ModuleName(artifact)
	if name == "" {
		name = "artifact"
	}
	base := fmt.Sprintf("%s_%s", name, metadata.RunID)

	if err := os.WriteFile(filepath.Join(s.Dir, base+".v"), []byte(artifact), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, base+".json"), encoded, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
