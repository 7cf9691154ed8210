// Package bench repeats a scheduling run and keeps the trace of the last one.
package bench

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobshop_greedy/jsp"
	"jobshop_greedy/sched"
	"jobshop_greedy/trace"
)

// DefaultRepetitions matches the solver's historical timing loop.
const DefaultRepetitions = 10

// Strategy is satisfied by *sched.Sequential and *sched.Coordinator.
type Strategy interface {
	Run() (sched.Result, error)
}

type Runner struct {
	Repetitions int
	Logger      *slog.Logger
}

type Record struct {
	RunID       string
	Repetitions int
	// Result and Lanes come from the final repetition.
	Result    sched.Result
	Lanes     [][]trace.Entry
	Makespans Stats[int]
	TimesMs   Stats[float64]
	Average   time.Duration
}

// Run schedules problem Repetitions times with strategy, which must write into
// problem and record into tr. The trace is cleared before every repetition, so
// the drained lanes in the record describe the final one only. The final
// schedule is verified and left in problem.
func (r Runner) Run(problem *jsp.Problem, strategy Strategy, tr *trace.Trace) (Record, error) {
	repetitions := r.Repetitions
	if repetitions <= 0 {
		repetitions = DefaultRepetitions
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	record := Record{RunID: uuid.Must(uuid.NewV7()).String(), Repetitions: repetitions}
	makespans := make([]int, 0, repetitions)
	timesMs := make([]float64, 0, repetitions)
	var total time.Duration

	for i := 0; i < repetitions; i++ {
		problem.Reset()
		tr.Reset()

		start := time.Now()
		result, err := strategy.Run()
		elapsed := time.Since(start)
		if err != nil {
			return Record{}, fmt.Errorf("repetition %d: %w", i, err)
		}

		total += elapsed
		makespans = append(makespans, result.Makespan)
		timesMs = append(timesMs, float64(elapsed.Microseconds())/1000.0)
		record.Result = result
	}

	if err := problem.Verify(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", sched.ErrSchedulingInvariant, err)
	}

	record.Lanes = tr.Drain()
	record.Makespans = CalcStats(makespans)
	record.TimesMs = CalcStats(timesMs)
	record.Average = total / time.Duration(repetitions)
	logger.Info("repetitions complete",
		"run", record.RunID,
		"problem", problem.Name,
		"repetitions", repetitions,
		"makespan", record.Result.Makespan,
		"avg", record.Average)
	return record, nil
}
