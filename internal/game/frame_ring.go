package game

import "time"

// frameRing records the last N gaps between Update calls so the overlay can
// show a smoothed frame rate.
type frameRing struct {
	buffer    []time.Duration
	nextIndex int
	filled    int
}

func newFrameRing(size int) *frameRing {
	return &frameRing{buffer: make([]time.Duration, size)}
}

func (r *frameRing) record(gap time.Duration) {
	r.buffer[r.nextIndex] = gap
	r.nextIndex++
	if r.nextIndex >= len(r.buffer) {
		r.nextIndex = 0
	}
	if r.filled < len(r.buffer) {
		r.filled++
	}
}

// snapshot returns up to the last n gaps (most recent last).
func (r *frameRing) snapshot(n int) []time.Duration {
	if n > r.filled {
		n = r.filled
	}
	out := make([]time.Duration, 0, n)
	// Walk backwards from nextIndex - 1
	idx := r.nextIndex - 1
	if idx < 0 {
		idx = len(r.buffer) - 1
	}
	for i := 0; i < n; i++ {
		out = append(out, r.buffer[idx])
		idx--
		if idx < 0 {
			idx = len(r.buffer) - 1
		}
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// fps averages the recorded gaps. Zero until something is recorded.
func (r *frameRing) fps() float64 {
	var total time.Duration
	for _, gap := range r.snapshot(r.filled) {
		total += gap
	}
	if total <= 0 {
		return 0
	}
	return float64(r.filled) / total.Seconds()
}
