package tier

import "testing"

func TestUpdateIsMonotonic(t *testing.T) {
	tests := []struct {
		name      string
		previous  int
		candidate int
		want      int
	}{
		{"first promotion", None, Structural, Structural},
		{"skip a level", None, Verified, Verified},
		{"higher candidate wins", Structural, Interface, Interface},
		{"equal candidate keeps tier", Interface, Interface, Interface},
		{"lower candidate never regresses", Verified, Structural, Verified},
		{"zero candidate never regresses", Interface, None, Interface},
		{"candidate above domain clamps", None, 7, Verified},
		{"negative candidate ignored", Structural, -1, Structural},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Update(tt.previous, tt.candidate); got != tt.want {
				t.Errorf("Update(%d, %d) = %d, want %d", tt.previous, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestUpdateIdempotentAtOrBelowCurrent(t *testing.T) {
	for stored := Min; stored <= Max; stored++ {
		for candidate := Min; candidate <= stored; candidate++ {
			once := Update(stored, candidate)
			twice := Update(once, candidate)
			if once != stored || twice != stored {
				t.Errorf("Update(%d, %d) changed stored tier: once=%d twice=%d", stored, candidate, once, twice)
			}
		}
	}
}

func TestValid(t *testing.T) {
	for v := Min; v <= Max; v++ {
		if !Valid(v) {
			t.Errorf("Valid(%d) = false, want true", v)
		}
	}
	for _, v := range []int{-1, 4, 100} {
		if Valid(v) {
			t.Errorf("Valid(%d) = true, want false", v)
		}
	}
}

func TestName(t *testing.T) {
	names := map[int]string{
		None:       "none",
		Structural: "structural",
		Interface:  "interface",
		Verified:   "verified",
		-1:         "none",
	}
	for value, want := range names {
		if got := Name(value); got != want {
			t.Errorf("Name(%d) = %q, want %q", value, got, want)
		}
	}
}
