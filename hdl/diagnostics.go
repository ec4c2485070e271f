package hdl

import "strings"

// Diagnostic categories, ordered from most to least actionable.
const (
	CategorySyntax     = "syntax"
	CategoryUndeclared = "undeclared"
	CategoryType       = "type"
	CategoryWidth      = "width"
	CategoryLatch      = "latch"
	CategoryTiming     = "timing"
	CategoryGeneral    = "general"
)

// categoryKeywords maps each category to the tool-output phrases that signal
// it. Order matters: the first category whose keywords match wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategorySyntax, []string{"syntax error", "parse error", "unexpected", "expected"}},
	{CategoryUndeclared, []string{"undeclared", "undefined", "not declared"}},
	{CategoryType, []string{"type mismatch", "incompatible types"}},
	{CategoryWidth, []string{"width", "bit width", "size mismatch"}},
	{CategoryLatch, []string{"latch"}},
	{CategoryTiming, []string{"setup time", "hold time", "timing violation"}},
}

// CategorizeDiagnostics maps raw verification output to a category. Unmatched
// text falls through to "general".
func CategorizeDiagnostics(diagnostics string) string {
	lower := strings.ToLower(diagnostics)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}

// suggestionMap carries the fix hints handed to the generator per category.
var suggestionMap = map[string][]string{
	CategorySyntax:     {"check semicolons", "verify module/endmodule", "check parentheses"},
	CategoryUndeclared: {"add signal declarations", "check signal names"},
	CategoryType:       {"verify signal types", "add explicit casts"},
	CategoryWidth:      {"check bit widths", "verify array dimensions"},
	CategoryLatch:      {"add default case", "complete if/else branches"},
	CategoryTiming:     {"review clock domains", "check register placement"},
	CategoryGeneral:    {"review error messages", "check the language standard"},
}

// Suggestions returns fix hints for a category.
func Suggestions(category string) []string {
	if hints, ok := suggestionMap[category]; ok {
		return append([]string(nil), hints...)
	}
	return append([]string(nil), suggestionMap[CategoryGeneral]...)
}

// Priority ranks a category for triage: syntax and undeclared-signal problems
// block everything else.
func Priority(category string) string {
	switch category {
	case CategorySyntax, CategoryUndeclared:
		return "high"
	case CategoryGeneral:
		return "low"
	default:
		return "medium"
	}
}
