// Package assert implements the kernel's error-handling policy for
// programming mistakes (spec.md §7): invalid task index, a nil entry
// point, an undersized stack buffer, wait_for_event called from the idle
// task, or both timer bits set in one mask. These are never recoverable
// application errors — they are bugs in the setup code — so, matching the
// original's ASSERT macro compiled into a debug build, they panic with a
// typed, inspectable error rather than returning one up an API that has no
// sane fallback behavior.
package assert

import "fmt"

// KernelFault is the panic value raised by Must. Category lets a recover
// site (tests, the CLI's top-level handler) distinguish a kernel fault
// from any other panic without string-matching.
type KernelFault struct {
	Category string
	Err      error
}

func (f *KernelFault) Error() string {
	return fmt.Sprintf("kernel fault [%s]: %v", f.Category, f.Err)
}

func (f *KernelFault) Unwrap() error { return f.Err }

// Must panics with a *KernelFault if err is non-nil, otherwise is a no-op.
func Must(category string, err error) {
	if err != nil {
		panic(&KernelFault{Category: category, Err: err})
	}
}

// Truef panics with a *KernelFault built from a formatted message when
// cond is false.
func Truef(category string, cond bool, format string, args ...any) {
	if !cond {
		panic(&KernelFault{Category: category, Err: fmt.Errorf(format, args...)})
	}
}
