package sched

import (
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/oleiade/lane/v2"
	"golang.org/x/sync/errgroup"

	"jobshop_greedy/jsp"
	"jobshop_greedy/trace"
)

// AdmitFunc reports whether worker takes part in round (counted from 0). It
// models a pool granting fewer workers than were asked for.
type AdmitFunc func(round, worker int) bool

type Options struct {
	// Threads is the requested pool size; it is clamped by EffectiveThreads.
	Threads   int
	// Admit defaults to admitting every worker.
	Admit     AdmitFunc
	// MaxRounds defaults to 10 rounds per operation.
	MaxRounds int
	// Trace defaults to one lane per worker of trace.DefaultCapacity entries.
	Trace     *trace.Trace
	Logger    *slog.Logger
}

// Coordinator schedules with a fixed pool of workers. Job j starts out owned
// by worker j mod threads; each round every admitted worker advances each of
// its jobs by one operation. Rounds without progress hand stuck jobs to idle
// workers, and when no idle worker is left worker 0 finishes the schedule alone.
type Coordinator struct {
	problem   *jsp.Problem
	resolver  *Resolver
	threads   int
	admit     AdmitFunc
	maxRounds int
	trace     *trace.Trace
	logger    *slog.Logger
	region    *region
	state     coordination
}

// coordination is everything the region guards.
type coordination struct {
	completed  []int
	earliest   []int
	owner      []int
	progressed mapset.Set[int]
	reassigned mapset.Set[int]
	scheduled  int
	advanced   int // this round
}

func NewCoordinator(problem *jsp.Problem, opts Options) *Coordinator {
	threads := EffectiveThreads(opts.Threads, problem.TotalOperations())
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = iterationFactor * problem.TotalOperations()
	}
	tr := opts.Trace
	if tr == nil {
		tr = trace.New(threads, trace.DefaultCapacity)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		problem:   problem,
		resolver:  NewResolver(problem),
		threads:   threads,
		admit:     opts.Admit,
		maxRounds: maxRounds,
		trace:     tr,
		logger:    logger,
		region:    newRegion(),
	}
}

// Threads is the effective pool size.
func (c *Coordinator) Threads() int {
	return c.threads
}

func (c *Coordinator) Trace() *trace.Trace {
	return c.trace
}

func (c *Coordinator) reset() {
	jobs := c.problem.JobCount()
	c.state = coordination{
		completed:  make([]int, jobs),
		earliest:   make([]int, jobs),
		owner:      make([]int, jobs),
		progressed: mapset.NewThreadUnsafeSet[int](),
		reassigned: mapset.NewThreadUnsafeSet[int](),
	}
	for j := range c.state.owner {
		c.state.owner[j] = j % c.threads
	}
}

// Run schedules every operation. On error the schedule is left reset.
func (c *Coordinator) Run() (Result, error) {
	c.problem.Reset()
	c.reset()
	total := c.problem.TotalOperations()
	result := Result{Threads: c.threads}

	for round := 0; c.state.scheduled < total; round++ {
		if round >= c.maxRounds {
			c.problem.Reset()
			return Result{}, fmt.Errorf("%w: %d rounds, %d of %d scheduled",
				ErrIterationCap, round, c.state.scheduled, total)
		}
		result.Rounds++
		advanced, err := c.round(round)
		if err != nil {
			c.problem.Reset()
			return Result{}, err
		}
		if advanced > 0 {
			continue
		}

		moved := c.reassign()
		result.Reassignments += moved
		if moved == 0 {
			c.logger.Warn("deadlock detected, finishing on a single worker",
				"problem", c.problem.Name,
				"round", round,
				"remaining", total-c.state.scheduled)
			result.Deadlock = true
			if err := c.fallback(); err != nil {
				c.problem.Reset()
				return Result{}, err
			}
		}
	}

	result.Makespan = c.problem.Makespan()
	c.logger.Info("coordinated schedule complete",
		"problem", c.problem.Name,
		"threads", c.threads,
		"rounds", result.Rounds,
		"reassignments", result.Reassignments,
		"deadlock", result.Deadlock,
		"makespan", result.Makespan)
	return result, nil
}

// round forks the admitted workers and joins them, returning how many
// operations were scheduled.
func (c *Coordinator) round(round int) (int, error) {
	c.region.rewind()
	c.state.advanced = 0

	var g errgroup.Group
	turn := 0
	for worker := 0; worker < c.threads; worker++ {
		if c.admit != nil && !c.admit(round, worker) {
			continue
		}
		slot := turn
		turn++
		g.Go(func() error {
			return c.work(worker, slot)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return c.state.advanced, nil
}

func (c *Coordinator) work(worker, turn int) error {
	c.region.enter(turn)
	defer c.region.leave()

	for job, owner := range c.state.owner {
		if owner != worker {
			continue
		}
		advanced, err := c.advance(worker, job)
		if err != nil {
			return fmt.Errorf("worker %d: %w", worker, err)
		}
		if advanced {
			c.state.progressed.Add(worker)
		}
	}
	return nil
}

// advance schedules the next operation of job, recording it on worker's trace
// lane. It reports false when the job is already complete.
func (c *Coordinator) advance(worker, job int) (bool, error) {
	st := &c.state
	op := st.completed[job]
	if op >= len(c.problem.Jobs[job].Operations) {
		return false, nil
	}
	began := time.Now()
	at := c.trace.Stamp()

	operation := c.problem.Operation(job, op)
	start, err := c.resolver.FindSlot(operation.Machine, operation.Duration, st.earliest[job])
	if err != nil {
		return false, fmt.Errorf("job %d op %d: %w", job, op, err)
	}
	c.resolver.Commit(job, op, start)
	st.completed[job]++
	st.earliest[job] = start + operation.Duration
	st.scheduled++
	st.advanced++

	c.trace.Append(worker, trace.Entry{Job: job, Op: op, At: at, Cost: time.Since(began)})
	return true, nil
}

// reassign gives each unfinished job, in job order, to the lowest idle worker
// not yet handed a job this run. It returns the number of jobs moved.
func (c *Coordinator) reassign() int {
	st := &c.state
	idle := lane.NewMinPriorityQueue[int, int]()
	for worker := 0; worker < c.threads; worker++ {
		if !st.progressed.Contains(worker) && !st.reassigned.Contains(worker) {
			idle.Push(worker, worker)
		}
	}

	moved := 0
	for job := range st.owner {
		if st.completed[job] >= len(c.problem.Jobs[job].Operations) {
			continue
		}
		worker, _, ok := idle.Pop()
		if !ok {
			break
		}
		c.logger.Debug("reassigning job", "job", job, "from", st.owner[job], "to", worker)
		st.owner[job] = worker
		st.reassigned.Add(worker)
		moved++
	}
	return moved
}

// fallback completes every remaining operation on worker 0, job by job.
func (c *Coordinator) fallback() error {
	c.region.rewind()
	c.region.enter(0)
	defer c.region.leave()

	for job := range c.state.owner {
		for {
			advanced, err := c.advance(0, job)
			if err != nil {
				return fmt.Errorf("fallback: %w", err)
			}
			if !advanced {
				break
			}
		}
	}
	return nil
}
