package footswitch

import "sync/atomic"

const queueSize = 8

// Queue hands events from the slow loop to the audio path. One goroutine
// pushes and one goroutine takes; neither blocks. Each pushed event is
// returned by Next exactly once.
type Queue struct {
	buf     [queueSize]Event
	head    atomic.Uint64
	tail    atomic.Uint64
	dropped atomic.Uint64
}

// Push appends an event. When the queue is full the event is dropped,
// counted, and false is returned. None is never queued.
func (q *Queue) Push(e Event) bool {
	if e == None {
		return false
	}
	t := q.tail.Load()
	if t-q.head.Load() >= queueSize {
		q.dropped.Add(1)
		return false
	}
	q.buf[t%queueSize] = e
	q.tail.Store(t + 1)
	return true
}

// Next removes and returns the oldest pending event.
func (q *Queue) Next() (Event, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return None, false
	}
	e := q.buf[h%queueSize]
	q.head.Store(h + 1)
	return e, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Dropped returns the number of events lost to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
