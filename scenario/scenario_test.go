package scenario

import "testing"

// TestFixtures replays every YAML fixture under testdata/, each one a
// literal end-to-end scenario from spec.md §8. Scenarios whose terminal
// state depends on a task having voluntarily re-suspended (rather than
// staying ready, as round-robin workers do) are written so every
// expectation is checked on values that settle once released — see
// DESIGN.md for why the round-robin and priority-ordering scenarios live
// in sched/kernel_test.go instead of here.
func TestFixtures(t *testing.T) {
	loaded, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatalf("no scenario fixtures found under testdata/")
	}
	for _, l := range loaded {
		l := l
		t.Run(l.Scenario.Name, func(t *testing.T) {
			res := Run(l.Scenario)
			if !res.Passed {
				t.Fatalf("%s failed:\n%s", l.File, joinFailures(res.Failures))
			}
		})
	}
}

func joinFailures(failures []string) string {
	out := ""
	for _, f := range failures {
		out += "  - " + f + "\n"
	}
	return out
}
