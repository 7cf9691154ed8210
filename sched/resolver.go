package sched

import (
	"fmt"

	"jobshop_greedy/jsp"
)

// Resolver finds conflict-free start times against the operations already
// committed in a problem's schedule.
type Resolver struct {
	problem *jsp.Problem
}

func NewResolver(problem *jsp.Problem) *Resolver {
	return &Resolver{problem: problem}
}

// FindSlot returns the earliest start >= earliest at which an operation of the
// given duration fits on machine without overlapping a committed operation.
// Intervals are half-open, zero-length ones included.
func (r *Resolver) FindSlot(machine, duration, earliest int) (int, error) {
	if machine < 0 || machine >= r.problem.Machines {
		return 0, fmt.Errorf("%w: machine %d out of range [0,%d)", ErrSchedulingInvariant, machine, r.problem.Machines)
	}
	committed := r.problem.MachineToJobs[machine]
	candidate := earliest
	for {
		end := candidate + duration
		retry := candidate
		for _, pair := range committed {
			other := r.problem.Operation(pair.Job, pair.Operation)
			if !other.Scheduled() {
				continue
			}
			if candidate < other.End() && end > other.Start {
				retry = max(retry, other.End())
			}
		}
		if retry == candidate {
			return candidate, nil
		}
		candidate = retry
	}
}

// Commit places the operation at start.
func (r *Resolver) Commit(job, op, start int) {
	r.problem.Operation(job, op).Start = start
}
