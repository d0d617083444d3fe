package catalog

import (
	"sync"
	"time"
)

// Debouncer runs a function once a quiescence window has elapsed since the
// most recent Schedule call. Scheduling again before the window elapses
// cancels the still-pending task, so only the latest scheduled function ever
// fires. This makes the "latest input after quiescence wins" contract explicit
// instead of implicit in timer semantics.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given trailing-edge delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule cancels any pending task and schedules fn to run after the delay.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending task without scheduling a new one.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
