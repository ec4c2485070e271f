// Package tier implements the monotonic quality gate an artifact climbs during
// a run. The tier value only ever moves upward; a specialist reporting a lower
// candidate never regresses the stored tier.
package tier

// Tier values and their fixed meaning.
const (
	// None means no usable artifact exists yet.
	None = 0

	// Structural means the artifact is structurally valid.
	Structural = 1

	// Interface means the artifact is structurally valid and fully utilizes its
	// declared interface.
	Interface = 2

	// Verified means the artifact passed external verification.
	Verified = 3
)

// Min and Max bound the tier domain.
const (
	Min = None
	Max = Verified
)

// Valid reports whether t is inside the tier domain.
func Valid(t int) bool {
	return t >= Min && t <= Max
}

// Update admits a candidate tier against the previous one. The result is
// max(previous, candidate) with the candidate clamped to the domain, so the
// stored tier is strictly non-decreasing and Update is idempotent for
// candidates at or below the current tier.
func Update(previous, candidate int) int {
	if candidate > Max {
		candidate = Max
	}
	if candidate > previous {
		return candidate
	}
	return previous
}

// Name returns a short human-readable label for a tier value.
func Name(t int) string {
	switch t {
	case Structural:
		return "structural"
	case Interface:
		return "interface"
	case Verified:
		return "verified"
	default:
		return "none"
	}
}
