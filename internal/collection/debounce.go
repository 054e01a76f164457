package collection

import (
	"sync"
	"time"
)

// Debouncer delays propagation of a rapidly changing value until it has
// been stable for the configured interval. Every Set restarts the pending
// timer, so a burst of inputs yields exactly one propagated value: the
// last. Consumers that read the raw value instead remain correct, just
// busier.
type Debouncer struct {
	delay time.Duration
	out   chan string

	mu     sync.Mutex
	timer  *time.Timer
	latest string
}

// NewDebouncer constructs a Debouncer with the given quiet interval. A
// non-positive delay propagates immediately.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, out: make(chan string, 1)}
}

// Set records a new input value and restarts the pending timer.
func (d *Debouncer) Set(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = value
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.delay <= 0 {
		d.emit(value)
		return
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.emit(d.latest)
	})
}

// C delivers settled values. Only the most recent settled value is
// retained; a slow reader never observes stale intermediates.
func (d *Debouncer) C() <-chan string {
	return d.out
}

// Stop cancels any pending propagation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) emit(value string) {
	select {
	case <-d.out:
	default:
	}
	d.out <- value
}
