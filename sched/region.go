package sched

import "sync"

// region is the one mutual exclusion region guarding the coordinator's state.
// Within a round, workers are admitted in turn order so that a given thread
// count always yields the same schedule.
type region struct {
	mu   sync.Mutex
	cond *sync.Cond
	turn int
}

func newRegion() *region {
	r := &region{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// enter blocks until it is turn's go and the region is free.
func (r *region) enter(turn int) {
	r.mu.Lock()
	for r.turn != turn {
		r.cond.Wait()
	}
}

func (r *region) leave() {
	r.turn++
	r.cond.Broadcast()
	r.mu.Unlock()
}

// rewind starts a new round of turns. No worker may be waiting.
func (r *region) rewind() {
	r.mu.Lock()
	r.turn = 0
	r.mu.Unlock()
}
