package tool

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"

	"github.com/refinelab/refinery/internal/jsonschema"
	"github.com/refinelab/refinery/providers/ai"
)

// Registry manages a collection of tools with thread-safe operations and
// validates declared input schemas before dispatching a call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]GenericTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]GenericTool),
	}
}

// NewRegistryWithTools creates a registry pre-populated with the given tools.
// Tool names are taken from each tool's ToolInfo().Name.
func NewRegistryWithTools(tools ...GenericTool) *Registry {
	registry := NewRegistry()
	registry.Add(tools...)
	return registry
}

// Add registers tools by their advertised name, stored in lowercase. A tool
// with the same name replaces the previous one.
func (r *Registry) Add(tools ...GenericTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		info := t.ToolInfo()
		r.tools[strings.ToLower(info.Name)] = t
	}
}

// Get retrieves a tool by name (case-insensitive).
func (r *Registry) Get(name string) (GenericTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	registered, exists := r.tools[strings.ToLower(name)]
	return registered, exists
}

// Has checks whether a tool with the given name exists (case-insensitive).
func (r *Registry) Has(name string) bool {
	_, exists := r.Get(name)
	return exists
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Descriptions returns the advertised descriptions of all registered tools,
// sorted by name for deterministic request payloads.
func (r *Registry) Descriptions() []ai.ToolDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptions := make([]ai.ToolDescription, 0, len(r.tools))
	for _, registered := range r.tools {
		descriptions = append(descriptions, registered.ToolInfo())
	}
	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Name < descriptions[j].Name
	})
	return descriptions
}

// Invoke looks up a tool by name, validates the JSON input against the tool's
// declared schema, and calls it. Lookup and validation failures come back as
// *ToolNotFoundError and *SchemaError values; they never panic and are meant
// to be folded into observations by the caller.
func (r *Registry) Invoke(ctx context.Context, name string, inputJson string) (string, error) {
	registered, exists := r.Get(name)
	if !exists {
		return "", &ToolNotFoundError{Name: name}
	}

	schema := registered.ToolInfo().Parameters
	if schema != nil {
		decoded, err := decodeRawInput(inputJson)
		if err != nil {
			return "", &SchemaError{Tool: name, Detail: err.Error()}
		}
		if err := jsonschema.Validate(schema, decoded); err != nil {
			return "", &SchemaError{Tool: name, Detail: err.Error()}
		}
	}

	return registered.Call(ctx, inputJson)
}

// decodeRawInput decodes a tool input string into a generic value for schema
// validation, repairing almost-JSON once.
func decodeRawInput(inputJson string) (any, error) {
	if strings.TrimSpace(inputJson) == "" {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(inputJson), &decoded); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(inputJson)
		if repairErr != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, err
		}
	}
	return decoded, nil
}
