package loop

import (
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the timer. It returns false if the timer already fired
	// or was stopped.
	Stop() bool
}

// Scheduler supplies the wall clock and deferred callbacks.
type Scheduler interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc runs fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Throttle wraps fn so that it runs at most once per interval. Calls that
// arrive while the window is closed are dropped, not queued.
func Throttle(s Scheduler, interval time.Duration, fn func(any)) func(any) {
	var (
		mu   sync.Mutex
		last time.Time
		ran  bool
	)
	return func(arg any) {
		now := s.Now()
		mu.Lock()
		if ran && now.Sub(last) < interval {
			mu.Unlock()
			return
		}
		ran = true
		last = now
		mu.Unlock()
		fn(arg)
	}
}

// Debouncer runs a callback once no new Trigger has arrived for the
// configured delay. At most one timer is pending at a time.
type Debouncer struct {
	mu      sync.Mutex
	sched   Scheduler
	delay   time.Duration
	pending Timer
}

// NewDebouncer creates a Debouncer on s.
func NewDebouncer(s Scheduler, delay time.Duration) *Debouncer {
	return &Debouncer{sched: s, delay: delay}
}

// Trigger cancels any pending callback and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
	}
	var t Timer
	t = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending == t {
			d.pending = nil
		}
		d.mu.Unlock()
		fn()
	})
	d.pending = t
}

// SetDelay changes the delay used by later triggers.
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	d.delay = delay
	d.mu.Unlock()
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
