// Package debounce delays a callback until input has been quiet for a
// fixed period.
package debounce

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet period used by search boxes
const DefaultQuiet = 400 * time.Millisecond

// Debouncer fires fn with the last value passed to Trigger once no new
// value has arrived for the quiet period. The first Trigger only records
// the initial value: the view has already loaded it.
type Debouncer struct {
	quiet time.Duration
	fn    func(string)

	mu      sync.Mutex
	started bool
	last    string
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New returns a debouncer; quiet <= 0 means DefaultQuiet
func New(quiet time.Duration, fn func(string)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, fn: fn}
}

// Trigger reports the current input value
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if !d.started {
		d.started = true
		d.last = value
		return
	}
	if value == d.last && d.timer == nil {
		return
	}
	d.last = value

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a timer that was stopped too late to prevent its func still runs;
	// only the latest generation may call fn
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	value := d.last
	d.mu.Unlock()

	d.fn(value)
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush runs a pending call immediately
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	value := d.last
	d.mu.Unlock()

	d.fn(value)
}

// Cancel drops a pending call without stopping the debouncer
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels any pending call; later Triggers are ignored
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
