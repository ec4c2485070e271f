// Package budget classifies remaining invocation capacity into zones that the
// planner uses to shift strategy as a run burns through its budget.
package budget

import "fmt"

// Zone is the coarse classification of remaining invocation capacity.
type Zone string

const (
	// ZoneGreen means at least 80% of the budget remains.
	ZoneGreen Zone = "green"

	// ZoneYellow means between 30% and 80% of the budget remains.
	ZoneYellow Zone = "yellow"

	// ZoneRed means less than 30% of the budget remains.
	ZoneRed Zone = "red"
)

// Strategy recommendations per zone.
const (
	RecommendContinueExploration = "continue_exploration"
	RecommendFocusOnImprovements = "focus_on_improvements"
	RecommendQuickWinsOnly       = "quick_wins_only"
)

// Classification is the result of classifying budget usage.
type Classification struct {
	Zone           Zone   `json:"zone"`
	Remaining      int    `json:"remaining"`
	Recommendation string `json:"recommendation"`
}

// Classify maps (invocations used, budget maximum) to a zone and a strategy
// recommendation. It is total and deterministic for 0 <= used <= max, max > 0;
// out-of-range inputs are clamped rather than rejected so callers never have to
// handle an error from accounting.
func Classify(used, max int) Classification {
	if max <= 0 {
		max = 1
	}
	if used < 0 {
		used = 0
	}
	if used > max {
		used = max
	}

	remaining := max - used
	pct := float64(remaining) / float64(max)

	switch {
	case pct >= 0.8:
		return Classification{Zone: ZoneGreen, Remaining: remaining, Recommendation: RecommendContinueExploration}
	case pct >= 0.3:
		return Classification{Zone: ZoneYellow, Remaining: remaining, Recommendation: RecommendFocusOnImprovements}
	default:
		return Classification{Zone: ZoneRed, Remaining: remaining, Recommendation: RecommendQuickWinsOnly}
	}
}

// String renders the classification as a compact status fragment suitable for
// scratchpad lines, e.g. "yellow(12 left)".
func (c Classification) String() string {
	return fmt.Sprintf("%s(%d left)", c.Zone, c.Remaining)
}
