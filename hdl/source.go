// Package hdl holds the deterministic artifact heuristics: extracting HDL
// source from free-form responses, structural validation, port-usage analysis
// and diagnostic categorization. Nothing here calls a reasoning collaborator.
package hdl

import (
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?is)```(?:verilog|systemverilog|sv)?\\s*\\n(.*?)\\n```")
	moduleBlockRe = regexp.MustCompile(`(?is)(module\s+\w+.*?endmodule)`)
	moduleNameRe  = regexp.MustCompile(`(?i)module\s+(\w+)`)
)

// ExtractSource pulls HDL source out of a free-form response. It tries, in
// order: a fenced markdown code block, a module...endmodule span, and finally
// the raw trimmed response.
func ExtractSource(response string) string {
	if response == "" {
		return ""
	}

	if match := fencedBlockRe.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}

	if match := moduleBlockRe.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}

	return strings.TrimSpace(response)
}

// ModuleName extracts the first declared module name, or "" when none exists.
func ModuleName(source string) string {
	match := moduleNameRe.FindStringSubmatch(source)
	if match == nil {
		return ""
	}
	return match[1]
}
