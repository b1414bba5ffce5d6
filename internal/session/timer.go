package session

import (
	"sync"
	"time"
)

// debounceTimer is a cancellable single-shot timer: arming it revokes
// any previously armed callback, so only the last event within a quiet
// window fires. The sequence check guards against a timer that already
// fired into the runtime queue before Stop could reach it.
type debounceTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// Arm schedules fn after delay, superseding any earlier schedule.
func (d *debounceTimer) Arm(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	armed := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		live := armed == d.seq
		d.mu.Unlock()
		if live {
			fn()
		}
	})
}

// Stop revokes any pending callback.
func (d *debounceTimer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
