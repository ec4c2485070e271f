package state

import "testing"

func TestNewInitializesRun(t *testing.T) {
	st := New("counter with enable", 50)
	if st.RunID == "" {
		t.Error("RunID should be set")
	}
	if st.Task != "counter with enable" {
		t.Errorf("Task = %q", st.Task)
	}
	if st.MaxInvocations != 50 {
		t.Errorf("MaxInvocations = %d, want 50", st.MaxInvocations)
	}
	if st.Invocations != 0 || st.Tier != 0 {
		t.Errorf("fresh state should start at zero, got invocations=%d tier=%d", st.Invocations, st.Tier)
	}
	if st.StartedAt.IsZero() || st.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	a := New("task", 10)
	b := New("task", 10)
	if a.RunID == b.RunID {
		t.Errorf("two runs share RunID %s", a.RunID)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	st := New("task", 10)
	st.Artifact = "module m; endmodule"
	st.Scratchpad = append(st.Scratchpad, "[1] generate (ok): first draft")
	st.TierHistory = append(st.TierHistory, 1)
	st.Suggestions = []string{"check semicolons"}
	st.ErrorHistory = append(st.ErrorHistory, ErrorRecord{Category: "syntax"})
	st.Decisions = append(st.Decisions, Decision{Action: "generate"})

	snapshot := st.Snapshot()
	snapshot.Artifact = "mutated"
	snapshot.Scratchpad[0] = "mutated"
	snapshot.TierHistory[0] = 99
	snapshot.Suggestions[0] = "mutated"
	snapshot.ErrorHistory[0].Category = "mutated"
	snapshot.Decisions[0].Action = "mutated"

	if st.Artifact != "module m; endmodule" {
		t.Error("snapshot mutation leaked into Artifact")
	}
	if st.Scratchpad[0] != "[1] generate (ok): first draft" {
		t.Error("snapshot mutation leaked into Scratchpad")
	}
	if st.TierHistory[0] != 1 {
		t.Error("snapshot mutation leaked into TierHistory")
	}
	if st.Suggestions[0] != "check semicolons" {
		t.Error("snapshot mutation leaked into Suggestions")
	}
	if st.ErrorHistory[0].Category != "syntax" {
		t.Error("snapshot mutation leaked into ErrorHistory")
	}
	if st.Decisions[0].Action != "generate" {
		t.Error("snapshot mutation leaked into Decisions")
	}
}

func TestFailureResult(t *testing.T) {
	result := Failure("provider unreachable")
	if result.OK {
		t.Error("failure result should not be OK")
	}
	if result.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1 so failed dispatches still count", result.Consumed)
	}
	if result.Diagnostics != "provider unreachable" {
		t.Errorf("Diagnostics = %q", result.Diagnostics)
	}
}
