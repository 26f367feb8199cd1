package host

import "time"

// Dimensions is a viewport size in logical units plus its device pixel ratio.
type Dimensions struct {
	Width  float64
	Height float64
	DPR    float64
}

// Debouncer collapses a burst of resize notifications into one, delivered
// once the burst has been quiet for the configured period.
type Debouncer struct {
	quiet    time.Duration
	armed    bool
	deadline time.Time
	latest   Dimensions
}

func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Trigger records dims and restarts the quiet period.
func (d *Debouncer) Trigger(dims Dimensions, now time.Time) {
	d.latest = dims
	d.deadline = now.Add(d.quiet)
	d.armed = true
}

// Poll returns the latest dims once the quiet period has elapsed, exactly once
// per burst.
func (d *Debouncer) Poll(now time.Time) (Dimensions, bool) {
	if !d.armed || now.Before(d.deadline) {
		return Dimensions{}, false
	}
	d.armed = false
	return d.latest, true
}

// Armed reports whether a burst is waiting to be delivered.
func (d *Debouncer) Armed() bool {
	return d.armed
}
