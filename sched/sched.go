// Package sched builds feasible job-shop schedules.
//
// Two drivers share the Resolver: Sequential, a deterministic greedy that
// always advances the job able to start earliest, and Coordinator, which
// spreads jobs over a pool of workers and funnels every decision through one
// shared region. Both write start times into the jsp.Problem they are given
// and record their decisions in a trace.Trace.
package sched

import (
	"errors"
	"fmt"
)

// ErrSchedulingInvariant means a driver reached a state a well-formed problem
// cannot produce. The run is aborted and the schedule reset.
var ErrSchedulingInvariant = errors.New("scheduling invariant violated")

var (
	ErrNoEligibleJob = fmt.Errorf("%w: no eligible job while operations remain", ErrSchedulingInvariant)
	ErrIterationCap  = fmt.Errorf("%w: iteration cap exceeded", ErrSchedulingInvariant)
)

const (
	// smallProblemOps and smallProblemThreads cap the pool for small problems.
	smallProblemOps     = 100
	smallProblemThreads = 8

	// iterationFactor times the operation count bounds the coordinator's rounds.
	iterationFactor = 10
)

// EffectiveThreads clamps a requested worker count to the problem size.
func EffectiveThreads(requested, totalOps int) int {
	threads := requested
	if threads > totalOps {
		threads = totalOps
	}
	if threads > smallProblemThreads && totalOps < smallProblemOps {
		threads = smallProblemThreads
	}
	if threads < 1 {
		threads = 1
	}
	return threads
}

// Result summarizes one run.
type Result struct {
	Makespan      int
	Threads       int
	Rounds        int
	Reassignments int
	Deadlock      bool
}
