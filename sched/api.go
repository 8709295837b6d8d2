package sched

import (
	"rtuinos/assert"
)

func (k *Kernel) send(req request) result {
	if k.ctx == nil {
		return result{err: ErrNotRunning}
	}
	req.reply = make(chan result, 1)
	select {
	case k.requests <- req:
	case <-k.ctx.Done():
		return result{err: ErrNotRunning}
	}
	select {
	case res := <-req.reply:
		return res
	case <-k.ctx.Done():
		return result{err: ErrNotRunning}
	}
}

// Tick is the system-tick ISR (spec.md §4.5): advance the clock by one,
// run the engine, and switch if a task became due or round-robin rotated.
// Called by whatever tick source the caller wires up (spec.md explicitly
// leaves timer hardware programming out of scope); it never blocks beyond
// the engine's own processing.
func (k *Kernel) Tick() {
	k.send(request{kind: reqTick})
}

// PostEvent is set_event called from ISR context (spec.md §4.5's optional
// user-event ISRs, or any external interrupt source): it distributes vec
// to waiting tasks and may cause a switch, but there is no calling task to
// preempt, so it never blocks waiting for reactivation.
func (k *Kernel) PostEvent(vec uint16) {
	k.send(request{kind: reqPostEvent, vec: vec})
}

// SetEvent is set_event called from task context (spec.md §4.5): vec's
// timer bits are silently dropped. If posting vec releases a
// higher-priority task, the caller itself is preempted and this call does
// not return until the caller becomes active again.
func (k *Kernel) SetEvent(callerID int, vec uint16) {
	res := k.send(request{kind: reqSetEvent, callerID: callerID, vec: vec})
	if res.err != nil {
		return
	}
	if !res.stillActive {
		k.parkIfDisplaced(callerID)
	}
}

// WaitForEvent is wait_for_event (spec.md §4.5), callable only from a task
// (never idle). It always suspends the caller and always returns a
// different active task's worth of CPU time before resuming: the return
// value is the bit vector of events that actually released the caller.
func (k *Kernel) WaitForEvent(callerID int, mask uint16, all bool, timeout uint16) uint16 {
	res := k.send(request{kind: reqWaitForEvent, callerID: callerID, vec: mask, all: all, timeout: timeout})
	if res.err == ErrNotRunning {
		// The kernel was stopped while a task was parked here: ordinary
		// shutdown, not a programming error, so return quietly rather than
		// fault the caller for something outside its control.
		return 0
	}
	assert.Must("wait_for_event", res.err)
	// wait_logic always changes the active task (spec.md §4.5: "the active
	// task always changes, at minimum to idle"), so the caller always parks
	// and is later woken with its release vector staged by dispatch.
	d, err := k.table.Get(callerID)
	assert.Must("wait_for_event", err)
	select {
	case vec := <-d.Activate:
		return vec
	case <-k.ctx.Done():
		return 0
	}
}

// Yield is the managed-runtime's round-robin/preemption checkpoint (see
// DESIGN.md): it asks the engine whether a different task should be
// running right now, and if so, blocks the caller until it is reactivated.
// Task bodies that participate in round-robin, or that run long
// computations between wait_for_event calls, should call it periodically
// at loop-safe points — this is the adaptation spec.md §9 licenses in
// place of hardware's arbitrary-instruction-boundary preemption.
func (k *Kernel) Yield(callerID int) {
	res := k.send(request{kind: reqYield, callerID: callerID})
	if res.err != nil || res.stillActive {
		return
	}
	k.parkIfDisplaced(callerID)
}

// TaskOverrunCounter is get_task_overrun_counter (spec.md §6): saturating
// at 255, optionally reset as part of the same critical section.
func (k *Kernel) TaskOverrunCounter(idx int, doReset bool) uint8 {
	res := k.send(request{kind: reqOverrun, callerID: idx, reset: doReset})
	assert.Must("get_task_overrun_counter", res.err)
	return res.overrun
}

// StackReserve is get_stack_reserve (spec.md §6): the prefix of the
// task's watermark buffer still holding the unused-stack fill pattern.
// Advisory only (spec.md §7) — see task.Descriptor.StackReserve and
// SPEC_FULL.md's supplemented stack-reserve section.
func (k *Kernel) StackReserve(idx int) uint16 {
	res := k.send(request{kind: reqStackReserve, callerID: idx})
	assert.Must("get_stack_reserve", res.err)
	return res.reserve
}

// Active returns the id of the currently active task. Exported for tests
// and a diagnostic front-end; not part of the ISR/task-facing API. Routed
// through the same request channel as every other query so it never
// races the engine loop's own mutation of k.active.
func (k *Kernel) Active() int {
	res := k.send(request{kind: reqActive})
	if res.err != nil {
		return k.idleID
	}
	return res.activeID
}
