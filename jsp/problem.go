package jsp

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Unscheduled marks an operation that has not been given a start time.
const Unscheduled = -1

// ErrMalformedProblem is returned for problem data that cannot be scheduled.
var ErrMalformedProblem = errors.New("malformed problem")

// ErrInvalidSchedule is returned by Verify.
var ErrInvalidSchedule = errors.New("invalid schedule")

type WorkPair struct {
	Machine  int `json:"machine" yaml:"machine"`
	Duration int `json:"duration" yaml:"duration"`
}

type Operation struct {
	Machine  int
	Duration int
	Start    int
}

// End is only meaningful once the operation is scheduled.
func (o Operation) End() int {
	return o.Start + o.Duration
}

func (o Operation) Scheduled() bool {
	return o.Start != Unscheduled
}

type Job struct {
	Operations []Operation
}

type JobOpPair struct {
	Job       int
	Operation int
}

// Problem holds the jobs and, through their operations' Start fields, the schedule.
// Only Start changes after construction.
type Problem struct {
	Name          string
	Machines      int
	Jobs          []Job
	MachineToJobs [][]JobOpPair
	total         int
}

// NewProblem validates the work table and builds an unscheduled Problem.
func NewProblem(name string, machines int, work [][]WorkPair) (*Problem, error) {
	if machines <= 0 {
		return nil, fmt.Errorf("%w: machines must be > 0 (got %d)", ErrMalformedProblem, machines)
	}
	problem := &Problem{Name: name, Machines: machines}
	problem.Jobs = make([]Job, len(work))
	problem.MachineToJobs = make([][]JobOpPair, machines)
	for j, row := range work {
		ops := make([]Operation, len(row))
		for o, pair := range row {
			if pair.Machine < 0 || pair.Machine >= machines {
				return nil, fmt.Errorf("%w: job %d op %d: machine %d out of range [0,%d)",
					ErrMalformedProblem, j, o, pair.Machine, machines)
			}
			if pair.Duration < 0 {
				return nil, fmt.Errorf("%w: job %d op %d: duration must be >= 0 (got %d)",
					ErrMalformedProblem, j, o, pair.Duration)
			}
			ops[o] = Operation{Machine: pair.Machine, Duration: pair.Duration, Start: Unscheduled}
			problem.MachineToJobs[pair.Machine] = append(problem.MachineToJobs[pair.Machine], JobOpPair{j, o})
		}
		problem.Jobs[j] = Job{Operations: ops}
		problem.total += len(ops)
	}
	return problem, nil
}

func (p *Problem) JobCount() int {
	return len(p.Jobs)
}

func (p *Problem) TotalOperations() int {
	return p.total
}

func (p *Problem) Operation(job, op int) *Operation {
	return &p.Jobs[job].Operations[op]
}

// Reset marks every operation unscheduled.
func (p *Problem) Reset() {
	for j := range p.Jobs {
		for o := range p.Jobs[j].Operations {
			p.Jobs[j].Operations[o].Start = Unscheduled
		}
	}
}

// Makespan is the latest finish over all scheduled operations.
func (p *Problem) Makespan() int {
	makespan := 0
	for _, job := range p.Jobs {
		for _, op := range job.Operations {
			if op.Scheduled() && op.End() > makespan {
				makespan = op.End()
			}
		}
	}
	return makespan
}

// Complete reports whether every operation has a start time.
func (p *Problem) Complete() bool {
	for _, job := range p.Jobs {
		for _, op := range job.Operations {
			if !op.Scheduled() {
				return false
			}
		}
	}
	return true
}

// Verify checks that the schedule is complete, honors job order and has no
// machine overlaps.
func (p *Problem) Verify() error {
	for j, job := range p.Jobs {
		for o, op := range job.Operations {
			if !op.Scheduled() {
				return fmt.Errorf("%w: job %d op %d is unscheduled", ErrInvalidSchedule, j, o)
			}
			if op.Start < 0 {
				return fmt.Errorf("%w: job %d op %d starts at %d", ErrInvalidSchedule, j, o, op.Start)
			}
			if o > 0 && job.Operations[o-1].End() > op.Start {
				return fmt.Errorf("%w: job %d op %d starts at %d before op %d ends at %d",
					ErrInvalidSchedule, j, o, op.Start, o-1, job.Operations[o-1].End())
			}
		}
	}
	seen := mapset.NewThreadUnsafeSet[JobOpPair]()
	for m, pairs := range p.MachineToJobs {
		for a := 0; a < len(pairs); a++ {
			seen.Add(pairs[a])
			first := p.Operation(pairs[a].Job, pairs[a].Operation)
			for b := a + 1; b < len(pairs); b++ {
				second := p.Operation(pairs[b].Job, pairs[b].Operation)
				if first.Start < second.End() && first.End() > second.Start {
					return fmt.Errorf("%w: machine %d: job %d op %d [%d,%d) overlaps job %d op %d [%d,%d)",
						ErrInvalidSchedule, m,
						pairs[a].Job, pairs[a].Operation, first.Start, first.End(),
						pairs[b].Job, pairs[b].Operation, second.Start, second.End())
				}
			}
		}
	}
	if seen.Cardinality() != p.total {
		return fmt.Errorf("%w: machine index covers %d of %d operations", ErrInvalidSchedule, seen.Cardinality(), p.total)
	}
	return nil
}

// Starts copies the start times, job-major.
func (p *Problem) Starts() [][]int {
	starts := make([][]int, len(p.Jobs))
	for j, job := range p.Jobs {
		starts[j] = make([]int, len(job.Operations))
		for o, op := range job.Operations {
			starts[j][o] = op.Start
		}
	}
	return starts
}
