package debounce

import (
	"sync"
	"time"

	"storefront/internal/schedule"
)

// DefaultWindow is the quiet period search input must hold before it is
// applied to the catalog view.
const DefaultWindow = 300 * time.Millisecond

// Debouncer settles a rapidly changing value once it has been stable for the
// window. Only the latest value is ever settled; intermediate values are
// dropped.
type Debouncer[T any] struct {
	mu       sync.Mutex
	sched    schedule.Scheduler
	window   time.Duration
	value    T
	pending  T
	armed    bool
	gen      uint64
	cancel   schedule.Cancel
	stopped  bool
	onSettle func(T)
}

// New returns a Debouncer holding initial. onSettle, if non-nil, is called
// after each settle with the lock released.
func New[T any](s schedule.Scheduler, window time.Duration, initial T, onSettle func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{sched: s, window: window, value: initial, onSettle: onSettle}
}

// Set restarts the quiet window with v as the candidate value.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	gen := d.gen
	d.pending = v
	d.armed = true
	d.cancel = d.sched.After(d.window, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A newer Set or Stop won the race against this timer.
	if d.stopped || gen != d.gen || !d.armed {
		d.mu.Unlock()
		return
	}
	v := d.settleLocked()
	cb := d.onSettle
	d.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (d *Debouncer[T]) settleLocked() T {
	d.value = d.pending
	d.armed = false
	d.cancel = nil
	return d.value
}

// Flush settles v immediately, discarding any pending value.
func (d *Debouncer[T]) Flush(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.gen++
	d.pending = v
	v = d.settleLocked()
	cb := d.onSettle
	d.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Stop cancels the pending timer. The debouncer ignores every later call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.armed = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
