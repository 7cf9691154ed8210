package sched

import (
	"fmt"
	"log/slog"
	"time"

	"jobshop_greedy/jsp"
	"jobshop_greedy/trace"
)

// Sequential schedules one operation at a time, always from the job whose next
// operation can start earliest.
type Sequential struct {
	problem  *jsp.Problem
	resolver *Resolver
	trace    *trace.Trace
	logger   *slog.Logger
}

// NewSequential returns a scheduler writing into problem. tr and logger may be nil.
func NewSequential(problem *jsp.Problem, tr *trace.Trace, logger *slog.Logger) *Sequential {
	if tr == nil {
		tr = trace.New(1, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequential{problem: problem, resolver: NewResolver(problem), trace: tr, logger: logger}
}

// Run schedules every operation. On error the schedule is left reset.
func (s *Sequential) Run() (Result, error) {
	s.problem.Reset()
	jobs := s.problem.JobCount()
	total := s.problem.TotalOperations()
	completed := make([]int, jobs)

	var ready *priorityTree[readyJob]
	for j := 0; j < jobs; j++ {
		if len(s.problem.Jobs[j].Operations) > 0 {
			ready = ready.push(readyJob{job: j, earliest: 0})
		}
	}

	for scheduled := 0; scheduled < total; scheduled++ {
		began := time.Now()
		at := s.trace.Stamp()
		if ready == nil {
			s.problem.Reset()
			return Result{}, fmt.Errorf("%w: %d of %d scheduled", ErrNoEligibleJob, scheduled, total)
		}
		next := ready.element
		ready = ready.pop()

		op := completed[next.job]
		operation := s.problem.Operation(next.job, op)
		start, err := s.resolver.FindSlot(operation.Machine, operation.Duration, next.earliest)
		if err != nil {
			s.problem.Reset()
			return Result{}, fmt.Errorf("job %d op %d: %w", next.job, op, err)
		}
		s.resolver.Commit(next.job, op, start)
		completed[next.job]++
		if completed[next.job] < len(s.problem.Jobs[next.job].Operations) {
			ready = ready.push(readyJob{job: next.job, earliest: start + operation.Duration})
		}
		s.trace.Append(0, trace.Entry{Job: next.job, Op: op, At: at, Cost: time.Since(began)})
	}

	result := Result{Makespan: s.problem.Makespan(), Threads: 1}
	s.logger.Info("sequential schedule complete",
		"problem", s.problem.Name,
		"operations", total,
		"makespan", result.Makespan)
	return result, nil
}
