// Package debounce delays an action until its input has been quiet for a
// fixed window.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs only the most recent action handed to Trigger, once the
// window has elapsed without another Trigger.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	seq     uint64
}

// New returns a Debouncer with the given quiet window. A non-positive window
// runs every action immediately.
func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn, replacing any action still waiting.
func (d *Debouncer) Trigger(fn func()) {
	if d.window <= 0 {
		d.cancel()
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the waiting action now, if there is one. It reports whether an
// action ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether an action is waiting for the window to pass.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop drops the waiting action without running it.
func (d *Debouncer) Stop() { d.cancel() }

func (d *Debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
