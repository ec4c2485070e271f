// Package parse extracts a structured payload from free-form reasoning output.
//
// The extraction heuristic is deliberately simple: take the substring between
// the first opening brace and the last closing brace and try to decode it,
// repairing almost-JSON when the strict decode fails. It tolerates leading and
// trailing prose but does not attempt brace balancing beyond the first/last
// heuristic; nested prose containing stray braces can defeat it. That weakness
// is a documented property of this component — any change to the heuristic is a
// behavior change and needs its own tests.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Failure reasons shared across the extraction and bounded-reasoning boundary.
const (
	ReasonNoStructuredPayload = "no_structured_payload"
	ReasonIterationLimit      = "iteration_limit"
	ReasonTimeout             = "timeout"
)

// Failure reports that no structured result could be produced, with a
// machine-readable reason. It is returned by Extract and by the bounded
// reasoning executor when its loop ends without a terminal answer.
type Failure struct {
	Reason string
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return "parse failure: " + f.Reason
	}
	return fmt.Sprintf("parse failure: %s: %s", f.Reason, f.Detail)
}

// NewFailure builds a Failure with the given reason and optional detail.
func NewFailure(reason, detail string) *Failure {
	return &Failure{Reason: reason, Detail: detail}
}

// Extract finds the first opening brace and the last closing brace in text and
// decodes the delimited substring as a JSON object. When strict decoding fails
// the substring is run through jsonrepair once and retried, which recovers the
// single quotes, unquoted keys and trailing commas that reasoning collaborators
// habitually emit. Returns a *Failure with reason "no_structured_payload" when
// no decodable payload exists.
func Extract(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, NewFailure(ReasonNoStructuredPayload, "no brace-delimited payload in text")
	}

	candidate := text[start : end+1]

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
		return payload, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		return nil, NewFailure(ReasonNoStructuredPayload, "payload is not decodable: "+repairErr.Error())
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, NewFailure(ReasonNoStructuredPayload, "repaired payload is not an object: "+err.Error())
	}
	return payload, nil
}

// ExtractAs decodes the payload found in text into a concrete type. It uses the
// same first-brace/last-brace heuristic and repair fallback as Extract.
func ExtractAs[T any](text string) (T, error) {
	var result T

	payload, err := Extract(text)
	if err != nil {
		return result, err
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("re-encoding payload: %w", err)
	}
	if err := json.Unmarshal(encoded, &result); err != nil {
		return result, NewFailure(ReasonNoStructuredPayload, fmt.Sprintf("payload does not match %T: %v", result, err))
	}
	return result, nil
}

// StringField reads a string-valued key from an extracted payload. Missing or
// non-string values return the empty string.
func StringField(payload map[string]any, key string) string {
	value, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return value
}
