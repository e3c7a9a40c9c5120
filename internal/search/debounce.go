package search

import (
	"sync"
	"time"
)

// debouncer runs the most recently scheduled function once the delay has
// passed without another schedule or cancel.
type debouncer struct {
	delay time.Duration
	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) schedule(fn func()) {
	if d.delay <= 0 {
		d.cancel()
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// cancel drops a pending call. It reports whether one was pending.
func (d *debouncer) cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

func (d *debouncer) pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
