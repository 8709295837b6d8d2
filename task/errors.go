package task

import "errors"

// Sentinel errors for programming mistakes caught at task-table setup time
// (spec.md §7 "Programming errors"). They come from Init, Table.Get and
// Table.AssertInitialized; the kernel's public API never returns them but
// panics with them (initialize_task, Start, and the per-task queries on a
// bad index), so they are fatal to the caller, mirroring RTuinOS's ASSERT
// macro on a desktop build.
var (
	ErrNilEntry          = errors.New("task entry function is nil")
	ErrWatermarkTooSmall = errors.New("watermark buffer too small")
	ErrIndexOutOfRange   = errors.New("task index out of range")
	ErrUninitializedTask = errors.New("task slot never initialized")
)
