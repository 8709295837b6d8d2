package sched

import (
	"context"
	"fmt"
	"sync"

	"rtuinos/assert"
	"rtuinos/config"
	"rtuinos/task"
	"rtuinos/trace"
)

// reqKind tags a request funneled through the kernel's single serialized
// loop — the managed-runtime stand-in for "disable interrupts, do the
// work, return-from-interrupt" (spec.md §5 Shared-resource policy).
type reqKind int

const (
	reqTick reqKind = iota
	reqPostEvent
	reqSetEvent
	reqWaitForEvent
	reqYield
	reqOverrun
	reqStackReserve
	reqActive
)

type request struct {
	kind     reqKind
	callerID int
	vec      uint16
	all      bool
	timeout  uint16
	reset    bool
	reply    chan result
}

type result struct {
	stillActive bool // for reqSetEvent/reqYield: did caller remain active?
	activeID    int
	overrun     uint8
	reserve     uint16
	err         error
}

// Kernel holds the full engine state described in spec.md §3.2: the task
// table, the per-class ready arrays, the suspended array, and the active
// task pointer. Once Start has returned, every field below is mutated
// exclusively by loop(), the kernel's single goroutine — everything else communicates through
// requests, the channel equivalent of entering a critical section.
type Kernel struct {
	cfg   config.Kernel
	clock *Clock
	table *task.Table

	ready     [][]*task.Descriptor
	suspended []*task.Descriptor
	active    *task.Descriptor
	idleID    int

	requests chan request

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started bool
	mu      sync.Mutex // guards started/ctx only, never engine state
}

// NewKernel allocates a kernel for the given configuration. It does not
// start anything; call InitializeTask for every application task, then
// Start.
func NewKernel(cfg config.Kernel) *Kernel {
	tbl := task.NewTable(cfg.Tasks)
	return &Kernel{
		cfg:      cfg,
		clock:    NewClock(Width(cfg.ClockWidth)),
		table:    tbl,
		ready:    make([][]*task.Descriptor, cfg.PrioClasses),
		idleID:   tbl.IdleID(),
		requests: make(chan request),
	}
}

// InitializeTask is initialize_task (spec.md §4.2): pre-seeds the
// descriptor, records its static parameters, and stores its initial wait
// condition. Must be called once per application task index, before
// Start; an assertion enforces entry point, priority class, and watermark
// validity.
func (k *Kernel) InitializeTask(idx int, entry task.EntryFunc, prio uint8, slice uint16, watermark []byte, startMask uint16, startAll bool, startTimeout uint16) {
	d, err := k.table.Get(idx)
	assert.Must("initialize_task", err)
	assert.Truef("initialize_task", int(prio) < k.cfg.PrioClasses, "priority class %d out of range [0,%d)", prio, k.cfg.PrioClasses)
	assert.Truef("initialize_task", startMask&task.EvtAbsTimer == 0 || startMask&task.EvtDelayTimer == 0, "%v", ErrBothTimerBits)
	assert.Must("initialize_task", d.Init(fmt.Sprintf("task%d", idx), entry, prio, slice, watermark))
	k.storeResumeCondition(d, startMask, startAll, startTimeout)
}

// storeResumeCondition is store_resume_condition (spec.md §4.3).
func (k *Kernel) storeResumeCondition(d *task.Descriptor, mask uint16, all bool, timeout uint16) {
	if mask&task.EvtAbsTimer != 0 {
		d.TimeDueAt = k.clock.Mask(d.TimeDueAt + timeout)
		if k.clock.Due(d.TimeDueAt) {
			d.BumpOverrun()
			trace.Overrun(d.ID, d.CntOverrun)
			d.TimeDueAt = k.clock.Mask(k.clock.Now() + 1)
		}
	} else {
		inc := timeout + 1
		if inc == 0 {
			d.CntDelay = timeout
		} else {
			d.CntDelay = inc
		}
	}
	d.EventMask = mask
	d.WaitForAny = !all
}

// isReleased is is_released (spec.md §4.3): the dual-timer-aware wait
// predicate. Non-timer bits require "all"; either timer bit always
// short-circuits, even in all-mode — never refactor this into a uniform
// "all bits match" test (spec.md §9).
func isReleased(d *task.Descriptor) bool {
	p, m := d.PostedEventVec, d.EventMask
	if d.WaitForAny {
		return p != 0
	}
	const tm = task.TimerEvtMask
	return (p^m)&^tm == 0 || p&m&tm != 0
}

// checkForTaskActivation is check_for_task_activation (spec.md §4.3). It
// scans suspended in place, releasing every task whose predicate is
// satisfied, then — if anything changed or hintSwitch was already true —
// recomputes the highest-priority ready head as the tentative new active
// task. Returns true iff the active task actually changed.
func (k *Kernel) checkForTaskActivation(hintSwitch bool) bool {
	switchCandidate := hintSwitch
	for i := 0; i < len(k.suspended); {
		d := k.suspended[i]
		if !isReleased(d) {
			i++
			continue
		}
		d.EventMask = 0
		if k.cfg.RoundRobin {
			d.CntRoundRobin = d.SliceLen
		}
		d.State = task.StateReady
		assert.Truef("checkForTaskActivation", len(k.ready[d.PrioClass]) < k.cfg.MaxPerClass,
			"priority class %d exceeded max_per_class=%d ready tasks", d.PrioClass, k.cfg.MaxPerClass)
		k.ready[d.PrioClass] = append(k.ready[d.PrioClass], d)
		k.suspended = append(k.suspended[:i], k.suspended[i+1:]...)
		switchCandidate = true
		// index not advanced: compaction moved the next element into i
	}
	if !switchCandidate {
		return false
	}
	newActive := k.topReadyOrIdle()
	if newActive == k.active {
		return false
	}
	old := k.active
	if old != nil {
		old.State = task.StateReady
	}
	k.active = newActive
	newActive.State = task.StateActive
	return true
}

func (k *Kernel) topReadyOrIdle() *task.Descriptor {
	for c := len(k.ready) - 1; c >= 0; c-- {
		if len(k.ready[c]) > 0 {
			return k.ready[c][0]
		}
	}
	idle, err := k.table.Get(k.idleID)
	assert.Must("topReadyOrIdle", err)
	return idle
}

// setEventLogic is set_event_logic (spec.md §4.3).
func (k *Kernel) setEventLogic(vec uint16) bool {
	vec &^= task.TimerEvtMask
	for _, d := range k.suspended {
		d.PostedEventVec |= vec & d.EventMask
	}
	return k.checkForTaskActivation(false)
}

// waitLogic is wait_logic (spec.md §4.3). Precondition: k.active is the
// calling task (enforced by the request dispatcher, not here).
func (k *Kernel) waitLogic(mask uint16, all bool, timeout uint16) {
	active := k.active
	c := active.PrioClass
	if len(k.ready[c]) > 0 && k.ready[c][0] == active {
		k.ready[c] = k.ready[c][1:]
	}
	k.storeResumeCondition(active, mask, all, timeout)
	active.State = task.StateSuspended
	k.suspended = append(k.suspended, active)
	newActive := k.topReadyOrIdle()
	k.active = newActive
	newActive.State = task.StateActive
}

// onTick is on_tick (spec.md §4.3).
func (k *Kernel) onTick() bool {
	now := k.clock.Advance()
	trace.Tick(now)
	for _, d := range k.suspended {
		if d.TimeDueAt == now && d.EventMask&task.EvtAbsTimer != 0 {
			d.PostedEventVec |= task.EvtAbsTimer
		}
		if d.CntDelay > 0 {
			d.CntDelay--
			if d.CntDelay == 0 {
				d.PostedEventVec |= task.EvtDelayTimer & d.EventMask
			}
		}
	}
	hintSwitch := false
	if k.cfg.RoundRobin && k.active.SliceLen > 0 && k.active.ID != k.idleID {
		if k.active.CntRoundRobin > 0 {
			k.active.CntRoundRobin--
		}
		if k.active.CntRoundRobin == 0 {
			k.active.CntRoundRobin = k.active.SliceLen
			c := k.active.PrioClass
			if len(k.ready[c]) >= 2 {
				rotated := k.ready[c][0]
				k.ready[c] = append(k.ready[c][1:], rotated)
				hintSwitch = true
			}
		}
	}
	return k.checkForTaskActivation(hintSwitch)
}
