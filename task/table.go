package task

import "fmt"

// Table is the kernel's static task table: N application task descriptors
// at indices [0, N) followed by exactly one idle descriptor at index N
// (spec.md §3.2). It never grows after NewTable — there is no equivalent of
// the teacher's dynamically-keyed task map; every slot exists from startup.
type Table struct {
	descs []*Descriptor
	idle  int
}

// NewTable allocates a table for n application tasks plus the idle task.
// Every Descriptor starts suspended and unparked on the context-switch
// channel; callers must still call Init (and the engine's
// storeResumeCondition) on each slot before the kernel starts.
func NewTable(n int) *Table {
	descs := make([]*Descriptor, n+1)
	for i := range descs {
		descs[i] = NewDescriptor(i)
	}
	return &Table{descs: descs, idle: n}
}

// Len returns N+1 (application tasks plus idle).
func (t *Table) Len() int { return len(t.descs) }

// IdleID returns the index reserved for the idle task.
func (t *Table) IdleID() int { return t.idle }

// Get returns the descriptor for idx, or an error if idx is out of range
// (spec.md §7's "invalid task index" programming error).
func (t *Table) Get(idx int) (*Descriptor, error) {
	if idx < 0 || idx >= len(t.descs) {
		return nil, fmt.Errorf("task index %d: %w", idx, ErrIndexOutOfRange)
	}
	return t.descs[idx], nil
}

// All returns the full backing slice, application tasks followed by idle.
// Callers must not mutate slice membership, only descriptor fields, and
// only from the scheduler's serialized loop.
func (t *Table) All() []*Descriptor { return t.descs }

// AssertInitialized checks every slot was given an entry point (the
// watermark buffer is not checked here; Init already rejects one below
// MinWatermarkBytes), the Go analog of RTuinOS's rtos_initRTOS
// DEBUG-mode ASSERT pass over the zeroed task array (see SPEC_FULL.md's
// supplemented DEBUG-mode initialization assertion).
func (t *Table) AssertInitialized() error {
	for _, d := range t.descs {
		if d.Entry == nil {
			return fmt.Errorf("task %d: %w", d.ID, ErrUninitializedTask)
		}
	}
	return nil
}
