// Package trace records the scheduling decisions of a run, one lane per worker.
//
// A Trace is diagnostic only: nothing reads it back while scheduling, and
// entries beyond a lane's capacity are dropped without failing the run.
// Callers serialize access to a lane; the coordinator only appends from
// inside its shared region.
package trace

import "time"

// DefaultCapacity is the number of entries kept per lane.
const DefaultCapacity = 10000

// Entry is one scheduling decision.
type Entry struct {
	Job  int
	Op   int
	At   time.Duration // since the trace epoch
	Cost time.Duration // wall time spent deciding
}

type Trace struct {
	capacity int
	lanes    [][]Entry
	dropped  int
	epoch    time.Time
}

func New(lanes, capacity int) *Trace {
	if lanes < 1 {
		lanes = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Trace{capacity: capacity, lanes: make([][]Entry, lanes), epoch: time.Now()}
}

// Append adds e to lane, reporting false when the lane is full or out of range.
func (t *Trace) Append(lane int, e Entry) bool {
	if lane < 0 || lane >= len(t.lanes) || len(t.lanes[lane]) >= t.capacity {
		t.dropped++
		return false
	}
	t.lanes[lane] = append(t.lanes[lane], e)
	return true
}

// Stamp is the time elapsed since the trace was created.
func (t *Trace) Stamp() time.Duration {
	return time.Since(t.epoch)
}

func (t *Trace) Reset() {
	for i := range t.lanes {
		t.lanes[i] = t.lanes[i][:0]
	}
	t.dropped = 0
}

// Drain returns a copy of every lane and resets the trace.
func (t *Trace) Drain() [][]Entry {
	out := make([][]Entry, len(t.lanes))
	for i, lane := range t.lanes {
		out[i] = append([]Entry(nil), lane...)
	}
	t.Reset()
	return out
}

func (t *Trace) Lanes() int {
	return len(t.lanes)
}

func (t *Trace) Len(lane int) int {
	return len(t.lanes[lane])
}

func (t *Trace) Capacity() int {
	return t.capacity
}

// Dropped counts entries refused since the last reset.
func (t *Trace) Dropped() int {
	return t.dropped
}
