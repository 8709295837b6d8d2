package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"rtuinos/config"
	"rtuinos/sched"
	"rtuinos/task"
)

// keyBinding pairs a keystroke with the event vector it posts. The binding
// table is built once, at NewKeyHost time, from whichever user-event ISRs
// the running configuration actually enables (spec.md §6's optional
// ISR_USER_00/01 slots) — a key for a disabled ISR is simply never bound,
// rather than silently posting an event no task's wait mask can ever name.
type keyBinding struct {
	key   byte
	vec   uint16
	label string
}

// KeyHost reads raw stdin and turns bound keystrokes into posted kernel
// events — the interactive stand-in for spec.md §4.5's user-event ISRs.
// Adapted from the teacher corpus's raw-stdin terminal host for the
// nonblocking-read/restore-terminal mechanics, which a raw posix tty
// inherently requires regardless of domain; the routing itself is driven
// by config rather than a fixed switch. Only instantiated for
// --interactive; never touched by tests.
type KeyHost struct {
	k        *sched.Kernel
	bindings map[byte]keyBinding

	quit    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewKeyHost builds a key host for k, binding one key per user-event ISR
// that cfg enables. 'q' and Ctrl-C always close Quit, regardless of config.
func NewKeyHost(k *sched.Kernel, cfg config.Kernel) *KeyHost {
	bindings := make(map[byte]keyBinding)
	if cfg.UserISR00 {
		bindings['0'] = keyBinding{key: '0', vec: task.EvtISRUser00, label: "ISR_USER_00"}
	}
	if cfg.UserISR01 {
		bindings['1'] = keyBinding{key: '1', vec: task.EvtISRUser01, label: "ISR_USER_01"}
	}
	return &KeyHost{
		k:        k,
		bindings: bindings,
		quit:     make(chan struct{}),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Quit is closed once the user presses 'q' or Ctrl-C.
func (h *KeyHost) Quit() <-chan struct{} { return h.quit }

// Start puts stdin in raw, non-blocking mode and begins reading in a
// background goroutine. Call Stop to restore the terminal.
func (h *KeyHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyhost: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "keyhost: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	for _, b := range h.bindings {
		fmt.Fprintf(os.Stderr, "keyhost: '%c' posts %s\n", b.key, b.label)
	}

	go h.readLoop()
}

func (h *KeyHost) readLoop() {
	defer close(h.done)
	buf := make([]byte, 1)
	for {
		select {
		case <-h.stopCh:
			return
		default:
		}
		n, err := syscall.Read(h.fd, buf)
		if n > 0 {
			h.route(buf[0])
		}
		switch {
		case err == syscall.EAGAIN || err == syscall.EWOULDBLOCK:
			time.Sleep(5 * time.Millisecond)
		case err != nil:
			return
		case n == 0:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// route dispatches a single byte through the config-driven binding table,
// falling back to the two always-on quit keys and logging anything else as
// unbound rather than guessing at a meaning for it.
func (h *KeyHost) route(b byte) {
	if b == 'q' || b == 0x03 { // 'q' or Ctrl-C
		h.stopped.Do(func() { close(h.quit) })
		return
	}
	binding, ok := h.bindings[b]
	if !ok {
		fmt.Fprintf(os.Stderr, "keyhost: key %q has no bound ISR (disabled or unmapped in config)\n", b)
		return
	}
	h.k.PostEvent(binding.vec)
}

// Stop terminates the stdin reading goroutine and restores the terminal.
func (h *KeyHost) Stop() {
	select {
	case <-h.stopCh:
	default:
		close(h.stopCh)
	}
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
