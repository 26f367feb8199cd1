package host

import "time"

// FrameHandle identifies a requested frame. The zero handle is never issued.
type FrameHandle uint64

// FrameFunc receives the timestamp of the tick that fired it.
type FrameFunc func(now time.Time)

type pendingFrame struct {
	handle FrameHandle
	fn     FrameFunc
}

// FrameQueue is a requestAnimationFrame-style scheduler. The owner calls Tick
// once per display refresh; every callback that was pending when Tick began
// runs in request order, and callbacks requested from inside a tick wait for
// the next one. Not safe for concurrent use.
type FrameQueue struct {
	next    FrameHandle
	pending []pendingFrame
	firing  []pendingFrame
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame queues fn for the next tick.
func (q *FrameQueue) RequestFrame(fn FrameFunc) FrameHandle {
	q.next++
	q.pending = append(q.pending, pendingFrame{handle: q.next, fn: fn})
	return q.next
}

// CancelFrame drops a pending callback. Unknown or already fired handles are ignored.
func (q *FrameQueue) CancelFrame(h FrameHandle) {
	for i, p := range q.pending {
		if p.handle == h {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
	// still waiting in the batch currently being fired
	for i := range q.firing {
		if q.firing[i].handle == h {
			q.firing[i].fn = nil
			return
		}
	}
}

// Pending reports how many callbacks are waiting for the next tick.
func (q *FrameQueue) Pending() int {
	return len(q.pending)
}

// Tick fires the callbacks queued before this call.
func (q *FrameQueue) Tick(now time.Time) {
	if len(q.pending) == 0 {
		return
	}
	q.firing, q.pending = q.pending, nil

	for i := 0; i < len(q.firing); i++ {
		fn := q.firing[i].fn
		if fn == nil {
			continue
		}
		q.firing[i].fn = nil
		fn(now)
	}
	q.firing = nil
}
