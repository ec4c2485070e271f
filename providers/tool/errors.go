package tool

import "fmt"

// ToolNotFoundError reports a directive naming a tool absent from the
// registry. It is returned as a value, never panicked, so the reasoning loop
// can fold it into an observation.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// SchemaError reports a tool input that failed validation against the tool's
// declared schema. Like ToolNotFoundError, it is returned as a value and
// recorded as an observation rather than aborting the loop.
type SchemaError struct {
	Tool   string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid input for tool %q: %s", e.Tool, e.Detail)
}
