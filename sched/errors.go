package sched

import "errors"

var (
	// ErrIdleWait is returned when wait_for_event is invoked by the idle
	// task, an assertion failure per spec.md §7.
	ErrIdleWait = errors.New("idle task may not call wait_for_event")
	// ErrBothTimerBits is returned when a wait mask sets both ABS_TIMER and
	// DELAY_TIMER — spec.md §5 requires exactly one timer bit at a time.
	ErrBothTimerBits = errors.New("wait mask sets both timer bits")
	// ErrNotRunning is returned by requests made before Start or after Stop.
	ErrNotRunning = errors.New("kernel is not running")
)
