package hdl

import (
	"fmt"
	"strings"
)

// StructureReport is the outcome of a structural validation pass.
type StructureReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// ValidateStructure performs the basic structural checks an artifact must pass
// before anything deeper is worth running: a module declaration with a matching
// endmodule, balanced parentheses, and balanced begin/end blocks.
func ValidateStructure(source string) StructureReport {
	var issues []string

	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return StructureReport{Valid: false, Issues: []string{"empty source"}}
	}

	lower := strings.ToLower(trimmed)
	if countWord(lower, "module") == 0 {
		issues = append(issues, "no module declaration")
	}
	if countWord(lower, "endmodule") == 0 {
		issues = append(issues, "missing endmodule")
	}

	if open, close := strings.Count(trimmed, "("), strings.Count(trimmed, ")"); open != close {
		issues = append(issues, fmt.Sprintf("unbalanced parentheses: %d open, %d close", open, close))
	}

	if begins, ends := countWord(lower, "begin"), countWord(lower, "end"); begins > ends {
		issues = append(issues, fmt.Sprintf("unbalanced begin/end: %d begin, %d end", begins, ends))
	}

	return StructureReport{Valid: len(issues) == 0, Issues: issues}
}

// countWord counts whole-word occurrences of word in text. "end" must not
// match inside "endmodule" or "endcase".
func countWord(text, word string) int {
	count := 0
	for i := 0; ; {
		idx := strings.Index(text[i:], word)
		if idx == -1 {
			return count
		}
		start := i + idx
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			count++
		}
		i = end
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
