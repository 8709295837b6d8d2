package scenario

import (
	"fmt"
	"sync"
	"time"

	"rtuinos/config"
	"rtuinos/sched"
)

// Result is the outcome of replaying one Scenario.
type Result struct {
	Scenario string
	Passed   bool
	Failures []string
}

// observations tracks, per task id, the vector most recently delivered by
// WaitForEvent — the generic scenario task's only externally visible
// behavior, guarded because the kernel's task goroutines write it
// concurrently with the runner's expectation checks.
type observations struct {
	mu   sync.Mutex
	last map[int]uint16
}

func (o *observations) record(id int, vec uint16) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last[id] = vec
}

func (o *observations) get(id int) uint16 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[id]
}

// Run builds a kernel from s's task set, drives s's steps in order, and
// checks every step's expectations, accumulating rather than stopping at
// the first failure so one run reports everything wrong with a fixture.
func Run(s Scenario) *Result {
	res := &Result{Scenario: s.Name, Passed: true}
	fail := func(format string, args ...any) {
		res.Passed = false
		res.Failures = append(res.Failures, fmt.Sprintf(format, args...))
	}

	cfg := config.Kernel{
		Tasks:       len(s.Tasks),
		PrioClasses: s.PrioClasses,
		MaxPerClass: len(s.Tasks),
		ClockWidth:  s.ClockWidth,
		RoundRobin:  s.RoundRobin,
	}
	if cfg.MaxPerClass == 0 {
		cfg.MaxPerClass = 1
	}
	k := sched.NewKernel(cfg)
	obs := &observations{last: make(map[int]uint16)}

	for _, ts := range s.Tasks {
		ts := ts
		entry := func(id int, initial uint16) {
			obs.record(id, initial)
			for {
				vec := k.WaitForEvent(id, ts.RearmMask, ts.RearmAll, ts.RearmTimeout)
				obs.record(id, vec)
			}
		}
		k.InitializeTask(ts.ID, entry, ts.Prio, ts.SliceLen, nil, ts.StartMask, ts.StartAll, ts.StartTimeout)
	}
	k.Start(func() {})
	defer k.Stop()

	// Task goroutines run concurrently with this loop; a short settle delay
	// after every step gives a dispatched task time to reach its next
	// checkpoint before expectations are checked. Scenarios are small and
	// local, so this trades a little real time for a much simpler runner
	// than a fully synchronous handshake would need.
	const settle = 5 * time.Millisecond

	for i, step := range stepsWithDefaults(s.Steps) {
		switch step.Kind {
		case "tick":
			for n := 0; n < step.Count; n++ {
				k.Tick()
			}
		case "post_event":
			k.PostEvent(step.Vec)
		case "set_event":
			k.SetEvent(step.TaskID, step.Vec)
		default:
			fail("step %d: unknown kind %q", i, step.Kind)
			continue
		}
		time.Sleep(settle)

		if step.ExpectActive != nil {
			if got := k.Active(); got != *step.ExpectActive {
				fail("step %d: expected active task %d, got %d", i, *step.ExpectActive, got)
			}
		}
		if step.ExpectOverrun != nil {
			if got := k.TaskOverrunCounter(step.TaskID, false); got != *step.ExpectOverrun {
				fail("step %d: expected overrun counter %d for task %d, got %d", i, *step.ExpectOverrun, step.TaskID, got)
			}
		}
		if step.ExpectVec != nil {
			id := step.TaskID
			if step.ExpectVecTask != nil {
				id = *step.ExpectVecTask
			}
			if got := obs.get(id); got != *step.ExpectVec {
				fail("step %d: expected task %d's last release vector %#04x, got %#04x", i, id, *step.ExpectVec, got)
			}
		}
	}
	return res
}

// stepsWithDefaults fills Count=1 for bare tick steps so fixtures can omit
// it for the common single-tick case.
func stepsWithDefaults(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	for i := range out {
		if out[i].Kind == "tick" && out[i].Count == 0 {
			out[i].Count = 1
		}
	}
	return out
}
