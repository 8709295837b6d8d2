package sched

import (
	"context"
	"fmt"

	"rtuinos/assert"
	"rtuinos/task"
	"rtuinos/trace"
)

// Start spawns every task's goroutine (parked on its own activation
// channel, per spec.md §9's boot/resume symmetry), sends the idle task
// its first activation, and launches the kernel's single serialized
// request loop. It returns immediately — the loop and task goroutines run
// in the background until Stop.
func (k *Kernel) Start(idleBody func()) {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return
	}
	k.ctx, k.cancel = context.WithCancel(context.Background())
	k.started = true
	k.mu.Unlock()

	idle, err := k.table.Get(k.idleID)
	assert.Must("Start", err)
	assert.Must("Start", idle.Init("idle", wrapIdle(idleBody, k, k.idleID), 0, 0, nil))
	assert.Must("Start", k.table.AssertInitialized())
	idle.State = task.StateActive
	k.active = idle

	for _, d := range k.table.All() {
		k.wg.Add(1)
		go k.bootTask(d.ID)
	}
	for _, d := range k.table.All() {
		if d.ID != k.idleID {
			d.State = task.StateSuspended
			k.suspended = append(k.suspended, d)
		}
	}

	idle.Activate <- 0

	k.wg.Add(1)
	go k.loop()
}

// Stop cancels the kernel's request loop. Task goroutines are not killed:
// a task that never received its first activation exits, and a task
// blocked in WaitForEvent, SetEvent or Yield is released when the context
// is cancelled (WaitForEvent returns 0) and keeps running its body, every
// later kernel call returning at once.
func (k *Kernel) Stop() {
	k.mu.Lock()
	cancel := k.cancel
	k.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// wrapIdle turns the application's idle body into a task entry function:
// call it once, then yield, forever — giving the kernel a checkpoint
// between idle invocations at which a newly-ready task can take over
// (spec.md §4.2: init_rtos "enters an unbounded loop that repeatedly
// invokes the application's idle body").
func wrapIdle(body func(), k *Kernel, id int) task.EntryFunc {
	return func(int, uint16) {
		for {
			body()
			k.Yield(id)
		}
	}
}

// bootTask is the goroutine body for every task slot, including idle. It
// blocks on the task's own activation channel before ever calling the
// entry function — pre-seeding a never-yet-run task's "stack" by parking
// it exactly where a resumed task would be parked (spec.md §4.1, §9).
func (k *Kernel) bootTask(id int) {
	defer k.wg.Done()
	d, err := k.table.Get(id)
	assert.Must("bootTask", err)
	var initial uint16
	select {
	case initial = <-d.Activate:
	case <-k.ctx.Done():
		return
	}
	d.Entry(id, initial)
	// A task entry function must never return (spec.md §3.4): on real
	// hardware a guard return address resets the controller. We fault the
	// same way — loudly, not gracefully, matching spec.md §7's documented
	// "not handled gracefully by design."
	err = fmt.Errorf("task %d entry function returned", id)
	trace.Fault(err)
	panic(&assert.KernelFault{Category: "task-return", Err: err})
}

// parkIfDisplaced blocks the calling task's goroutine on its own
// activation channel iff the engine decided some other task should run
// instead. This is the managed-runtime checkpoint standing in for the
// three hardware preemption points of spec.md §5 (tick ISR, user-event
// ISR, set_event/wait_for_event from task context): since Go cannot halt
// an arbitrary running goroutine mid-instruction, a task must reach one of
// WaitForEvent, SetEvent, or Yield for a pending preemption to actually
// take effect. See DESIGN.md for the open-question writeup.
func (k *Kernel) parkIfDisplaced(id int) {
	d, err := k.table.Get(id)
	assert.Must("parkIfDisplaced", err)
	select {
	case vec := <-d.Activate:
		_ = vec // resumed from a preemption, not a release: no event data to report
	case <-k.ctx.Done():
	}
}

// loop is the kernel's single serialized goroutine: every request below
// is the managed-runtime equivalent of "disable interrupts, run engine
// logic, return-from-interrupt" (spec.md §5).
func (k *Kernel) loop() {
	defer k.wg.Done()
	for {
		select {
		case <-k.ctx.Done():
			return
		case req := <-k.requests:
			k.handle(req)
		}
	}
}

func (k *Kernel) handle(req request) {
	switch req.kind {
	case reqTick:
		old := k.active
		if k.onTick() {
			k.dispatch(old, "tick")
		}
		req.reply <- result{}

	case reqPostEvent:
		old := k.active
		trace.Event(-1, req.vec)
		if k.setEventLogic(req.vec) {
			k.dispatch(old, "post-event")
		}
		req.reply <- result{}

	case reqSetEvent:
		old := k.active
		trace.Event(req.callerID, req.vec)
		if k.setEventLogic(req.vec) {
			k.dispatch(old, "set-event")
		}
		req.reply <- result{stillActive: k.active.ID == req.callerID}

	case reqYield:
		req.reply <- result{stillActive: k.active.ID == req.callerID}

	case reqWaitForEvent:
		if req.callerID == k.idleID {
			req.reply <- result{err: ErrIdleWait}
			return
		}
		if req.vec&task.EvtAbsTimer != 0 && req.vec&task.EvtDelayTimer != 0 {
			req.reply <- result{err: ErrBothTimerBits}
			return
		}
		old := k.active
		k.waitLogic(req.vec, req.all, req.timeout)
		k.dispatch(old, "suspend")
		req.reply <- result{}

	case reqOverrun:
		d, err := k.table.Get(req.callerID)
		if err != nil {
			req.reply <- result{err: err}
			return
		}
		cnt := d.CntOverrun
		if req.reset {
			d.CntOverrun = 0
		}
		req.reply <- result{overrun: cnt}

	case reqStackReserve:
		d, err := k.table.Get(req.callerID)
		if err != nil {
			req.reply <- result{err: err}
			return
		}
		req.reply <- result{reserve: d.StackReserve()}

	case reqActive:
		req.reply <- result{activeID: k.active.ID}
	}
}

// dispatch wakes the new active task, if it changed, by sending its
// staged posted-event vector on its activation channel and clearing the
// field (spec.md §4.1 "Stage return code"); a zero vector delivered to a
// task resuming from a preemption rather than a release is, per spec, the
// signal that no new return data is being injected.
func (k *Kernel) dispatch(old *task.Descriptor, cause string) {
	if k.active == old {
		return
	}
	vec := k.active.PostedEventVec
	k.active.PostedEventVec = 0
	trace.Switch(old.ID, k.active.ID, cause, vec)
	k.active.Activate <- vec
}
