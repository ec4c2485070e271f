// Package jsonschema derives JSON schemas for tool inputs via reflection and
// validates decoded inputs against them before a tool is invoked.
package jsonschema

import (
	"fmt"
	"reflect"
	"strings"
)

// Schema is the subset of JSON Schema used to describe tool inputs: enough to
// advertise a tool to a reasoning collaborator and to check required keys and
// primitive types on the way back in.
type Schema struct {
	// Type specifies the data type (e.g. "object", "array", "string", "number").
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the object, each with its own schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Items defines the schema of array elements.
	Items *Schema `json:"items,omitempty"`
	// Enum lists the allowed values, when constrained.
	Enum []any `json:"enum,omitempty"`
}

// Generate derives a schema from the struct type T. Field names follow json
// tags; fields tagged json:"-" are skipped. A field is required unless it is a
// pointer or carries omitempty.
func Generate[T any]() *Schema {
	return generate(reflect.TypeFor[T]())
}

func generate(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.Ptr:
		return generate(t.Elem())

	case reflect.Struct:
		schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			name := field.Name
			omitEmpty := false
			if tag := field.Tag.Get("json"); tag != "" {
				if tag == "-" {
					continue
				}
				parts := strings.Split(tag, ",")
				if parts[0] != "" {
					name = parts[0]
				}
				for _, part := range parts[1:] {
					if part == "omitempty" {
						omitEmpty = true
					}
				}
			}

			fieldSchema := generate(field.Type)
			if desc := field.Tag.Get("description"); desc != "" {
				fieldSchema.Description = desc
			}
			schema.Properties[name] = fieldSchema

			if field.Type.Kind() != reflect.Ptr && !omitEmpty {
				schema.Required = append(schema.Required, name)
			}
		}
		return schema

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generate(t.Elem())}

	case reflect.Map:
		return &Schema{Type: "object"}

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	default:
		return &Schema{}
	}
}

// Validate checks a decoded input value against the schema. It enforces
// required keys and primitive type compatibility; properties not declared in
// the schema are tolerated, matching how reasoning collaborators pad their
// tool calls with extras.
func Validate(schema *Schema, value any) error {
	if schema == nil {
		return nil
	}
	return validate(schema, value, "$")
}

func validate(schema *Schema, value any, path string) error {
	switch schema.Type {
	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		for _, required := range schema.Required {
			if _, present := object[required]; !present {
				return fmt.Errorf("%s: missing required key %q", path, required)
			}
		}
		for name, propertySchema := range schema.Properties {
			propertyValue, present := object[name]
			if !present || propertyValue == nil {
				continue
			}
			if err := validate(propertySchema, propertyValue, path+"."+name); err != nil {
				return err
			}
		}
		return nil

	case "array":
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		if schema.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := validate(schema.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
		return nil

	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
		return nil

	case "integer":
		// JSON numbers decode as float64; accept whole floats as integers.
		number, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s: expected integer, got %T", path, value)
		}
		if number != float64(int64(number)) {
			return fmt.Errorf("%s: expected integer, got %v", path, number)
		}
		return nil

	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
		return nil

	default:
		return nil
	}
}
