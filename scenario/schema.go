// Package scenario loads and replays the kernel's YAML-described
// end-to-end scenarios (spec.md §8's literal scenarios), the conformance-
// suite idiom adapted from the teacher's own YAML test-fixture schema and
// directory-walking loader.
package scenario

// Scenario is one complete YAML test document: a kernel configuration, the
// task set to initialize, and the ordered steps to drive against it.
type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	ClockWidth  int        `yaml:"clock_width"`
	PrioClasses int        `yaml:"prio_classes"`
	RoundRobin  bool       `yaml:"round_robin,omitempty"`
	Tasks       []TaskSpec `yaml:"tasks"`
	Steps       []Step     `yaml:"steps"`
}

// TaskSpec describes one application task's static parameters and initial
// wait condition (spec.md §4.2's initialize_task / store_resume_condition
// arguments). Every release the generic scenario task observes is recorded
// and the task immediately re-arms with Rearm*, so a scenario can drive a
// task through several cycles with a single spec entry.
type TaskSpec struct {
	ID           int    `yaml:"id"`
	Prio         uint8  `yaml:"prio"`
	SliceLen     uint16 `yaml:"slice_len,omitempty"`
	StartMask    uint16 `yaml:"start_mask"`
	StartAll     bool   `yaml:"start_all,omitempty"`
	StartTimeout uint16 `yaml:"start_timeout,omitempty"`
	RearmMask    uint16 `yaml:"rearm_mask"`
	RearmAll     bool   `yaml:"rearm_all,omitempty"`
	RearmTimeout uint16 `yaml:"rearm_timeout,omitempty"`
}

// Step is one action in a scenario's timeline, plus optional expectations
// checked immediately after the action completes.
type Step struct {
	// Kind is one of "tick", "post_event", or "set_event".
	Kind string `yaml:"kind"`
	// Count repeats a "tick" step this many times (default 1).
	Count int `yaml:"count,omitempty"`
	// TaskID is the calling task for a "set_event" step.
	TaskID int `yaml:"task_id,omitempty"`
	// Vec is the event vector posted by "post_event"/"set_event".
	Vec uint16 `yaml:"vec,omitempty"`

	ExpectActive  *int    `yaml:"expect_active,omitempty"`
	ExpectOverrun *uint8  `yaml:"expect_overrun,omitempty"`
	ExpectVec     *uint16 `yaml:"expect_vec,omitempty"`
	// ExpectVecTask names which task's last observed release vector
	// ExpectVec checks; defaults to TaskID.
	ExpectVecTask *int `yaml:"expect_vec_task,omitempty"`
}
