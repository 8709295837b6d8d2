package assert

import (
	"errors"
	"testing"
)

func TestMustNoopOnNilError(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Must panicked on nil error: %v", r)
		}
	}()
	Must("test", nil)
}

func TestMustPanicsWithKernelFault(t *testing.T) {
	want := errors.New("boom")
	defer func() {
		r := recover()
		fault, ok := r.(*KernelFault)
		if !ok {
			t.Fatalf("expected *KernelFault panic, got %T: %v", r, r)
		}
		if fault.Category != "test" || !errors.Is(fault.Err, want) {
			t.Fatalf("unexpected fault: %+v", fault)
		}
	}()
	Must("test", want)
}

func TestTruefPanicsOnFalse(t *testing.T) {
	defer func() {
		r := recover()
		fault, ok := r.(*KernelFault)
		if !ok {
			t.Fatalf("expected *KernelFault panic, got %T: %v", r, r)
		}
		if fault.Error() == "" {
			t.Fatalf("expected non-empty fault message")
		}
	}()
	Truef("test", false, "value %d out of range", 7)
}
