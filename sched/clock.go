// Package sched implements the tick-driven scheduling engine: the ready
// and suspended arrays, the release predicate, round-robin rotation, and
// the context-switch handoff over task.Descriptor's activation channels.
package sched

// Width selects the bit width of the cyclic system-time counter (spec.md
// §6 Configuration). RTuinOS supports either an 8-bit or 16-bit counter
// depending on the target's timer register; both share the same signed-
// subtraction overrun arithmetic (spec.md §9), just masked differently.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
)

// Clock is the kernel's monotonic cyclic tick counter. It wraps at
// 2^width and never reports the future as being "in the past": due-time
// comparisons are done via the same signed-subtraction trick the original
// performs by casting an unsigned cyclic counter to its signed twin
// (spec.md §9's "why the comparison must stay same-width" constraint —
// widening Now or a due time to full uint16 before the subtraction would
// silently break overrun detection at 8-bit width).
type Clock struct {
	width Width
	now   uint16
}

// NewClock creates a clock of the given width. now starts at all-bits-set
// (spec.md §3.2: "time's initial value is ~0, so that the first tick
// yields time = 0"), mirroring RTuinOS's `_time = (uintTime_t)-1` — not
// zero, so a freshly computed near-term due time still reads as in the
// future at boot instead of registering a spurious overrun.
func NewClock(width Width) *Clock {
	c := &Clock{width: width}
	c.now = c.mask()
	return c
}

// Width reports the configured counter width.
func (c *Clock) Width() Width { return c.width }

func (c *Clock) mask() uint16 { return uint16(1)<<uint(c.width) - 1 }

// Mask reduces v to the configured counter width, the Go equivalent of the
// unsigned cyclic add RTuinOS performs on an 8- or 16-bit register.
func (c *Clock) Mask(v uint16) uint16 { return v & c.mask() }

// Now returns the current tick count, masked to the configured width.
func (c *Clock) Now() uint16 { return c.now & c.mask() }

// Advance moves the clock forward by one tick and returns the new value.
func (c *Clock) Advance() uint16 {
	c.now = (c.now + 1) & c.mask()
	return c.now
}

// signedDiff computes due-now as if both were width-bit signed integers,
// matching RTuinOS's `(intTime_t)(timeDueAt - time)`.
func (c *Clock) signedDiff(due uint16) int32 {
	mask := c.mask()
	diff := (due - c.now) & mask
	half := uint16(1) << uint(c.width-1)
	if diff >= half {
		return int32(diff) - int32(mask) - 1
	}
	return int32(diff)
}

// Due reports whether the given absolute tick value is now or already in
// the past — (intTime_t)(due - now) <= 0 in the original's arithmetic. Used
// in storeResumeCondition to detect that a freshly computed due time has
// already elapsed (an overrun); onTick fires ABS_TIMER on an exact
// TimeDueAt == now match instead.
func (c *Clock) Due(due uint16) bool {
	return c.signedDiff(due) <= 0
}
