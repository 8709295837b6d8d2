// Package trace provides execution tracing for the kernel: task switches,
// tick advances, overrun detections, and assertion failures. A disabled
// tracer must cost nothing on the hot path — every call is gated behind a
// single bool check before any formatting happens.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Tracer logs kernel events to a writer, optionally filtered by category
// glob matched against the bare category names "switch", "tick",
// "overrun", "event" and "fault" (e.g. "switch", "over*").
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// Global tracer instance, set once at startup by the CLI entry point.
var globalTracer *Tracer

// Init initializes the global tracer. filters may be nil to trace every
// category; writer defaults to os.Stderr.
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// IsEnabled reports whether the global tracer is active.
func IsEnabled() bool {
	if globalTracer == nil {
		return false
	}
	return globalTracer.enabled
}

// matchesFilter reports whether category matches any configured glob.
func (t *Tracer) matchesFilter(category string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, category); matched {
			return true
		}
	}
	return false
}

// Switch logs a context switch from one task id to another.
func (t *Tracer) Switch(fromID, toID int, cause string, postedVec uint16) {
	if !t.enabled || !t.matchesFilter("switch") {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] SWITCH %d -> %d (%s) vec=%#04x\n", fromID, toID, cause, postedVec)
}

// Tick logs a tick advance.
func (t *Tracer) Tick(now uint16) {
	if !t.enabled || !t.matchesFilter("tick") {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] TICK now=%d\n", now)
}

// Overrun logs a detected deadline overrun for a task.
func (t *Tracer) Overrun(taskID int, cnt uint8) {
	if !t.enabled || !t.matchesFilter("overrun") {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] OVERRUN task=%d cnt=%d\n", taskID, cnt)
}

// Event logs a set_event post.
func (t *Tracer) Event(posterID int, vec uint16) {
	if !t.enabled || !t.matchesFilter("event") {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] EVENT poster=%d vec=%#04x\n", posterID, vec)
}

// Fault logs an assertion/programming-error fault before the process exits.
func (t *Tracer) Fault(err error) {
	if !t.enabled || !t.matchesFilter("fault") {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] FAULT %v\n", err)
}

// Global convenience wrappers, no-ops when the tracer was never Init'd.

func Switch(fromID, toID int, cause string, postedVec uint16) {
	if globalTracer != nil {
		globalTracer.Switch(fromID, toID, cause, postedVec)
	}
}

func Tick(now uint16) {
	if globalTracer != nil {
		globalTracer.Tick(now)
	}
}

func Overrun(taskID int, cnt uint8) {
	if globalTracer != nil {
		globalTracer.Overrun(taskID, cnt)
	}
}

func Event(posterID int, vec uint16) {
	if globalTracer != nil {
		globalTracer.Event(posterID, vec)
	}
}

func Fault(err error) {
	if globalTracer != nil {
		globalTracer.Fault(err)
	}
}
