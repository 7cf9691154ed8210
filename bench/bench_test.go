package bench

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobshop_greedy/jsp"
	"jobshop_greedy/sched"
	"jobshop_greedy/trace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func toyProblem(t *testing.T) *jsp.Problem {
	t.Helper()
	problem, err := jsp.NewProblem("toy", 2, [][]jsp.WorkPair{
		{{Machine: 0, Duration: 3}, {Machine: 1, Duration: 2}},
		{{Machine: 1, Duration: 2}, {Machine: 0, Duration: 4}},
	})
	require.NoError(t, err)
	return problem
}

func TestCalcStats(t *testing.T) {
	ints := CalcStats([]int{4, 2, 6})
	assert.Equal(t, 3, ints.N)
	assert.Equal(t, 2, ints.Best)
	assert.InDelta(t, 4.0, ints.Mean, 1e-9)
	assert.InDelta(t, 2.0, ints.Std, 1e-9)

	floats := CalcStats([]float64{1.5})
	assert.Equal(t, 1.5, floats.Best)
	assert.Equal(t, 0.0, floats.Std)

	empty := CalcStats[int](nil)
	assert.Equal(t, 0, empty.N)
}

func TestRunnerSequentialKeepsFinalTrace(t *testing.T) {
	problem := toyProblem(t)
	tr := trace.New(1, trace.DefaultCapacity)
	strategy := sched.NewSequential(problem, tr, quietLogger())

	record, err := Runner{Repetitions: 4, Logger: quietLogger()}.Run(problem, strategy, tr)
	require.NoError(t, err)

	assert.Equal(t, 4, record.Repetitions)
	assert.Equal(t, 7, record.Result.Makespan)
	assert.Equal(t, 4, record.Makespans.N)
	assert.Equal(t, 7, record.Makespans.Best)
	assert.Equal(t, 0.0, record.Makespans.Std)
	require.Len(t, record.Lanes, 1)
	assert.Len(t, record.Lanes[0], 4)
	assert.True(t, problem.Complete())

	id, err := uuid.Parse(record.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRunnerCoordinatorDefaultsRepetitions(t *testing.T) {
	problem := toyProblem(t)
	coordinator := sched.NewCoordinator(problem, sched.Options{Threads: 2, Logger: quietLogger()})

	record, err := Runner{Logger: quietLogger()}.Run(problem, coordinator, coordinator.Trace())
	require.NoError(t, err)
	assert.Equal(t, DefaultRepetitions, record.Repetitions)
	assert.Equal(t, DefaultRepetitions, record.TimesMs.N)
	require.Len(t, record.Lanes, 2)
	assert.Len(t, record.Lanes[0], 2)
	assert.Len(t, record.Lanes[1], 2)
}

type failing struct{ calls int }

func (f *failing) Run() (sched.Result, error) {
	f.calls++
	if f.calls == 2 {
		return sched.Result{}, sched.ErrNoEligibleJob
	}
	return sched.Result{}, nil
}

func TestRunnerStopsOnFailure(t *testing.T) {
	problem := toyProblem(t)
	strategy := &failing{}
	_, err := Runner{Repetitions: 5, Logger: quietLogger()}.Run(problem, strategy, trace.New(1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sched.ErrSchedulingInvariant))
	assert.Contains(t, err.Error(), "repetition 1")
	assert.Equal(t, 2, strategy.calls)
}

type lazy struct{}

func (lazy) Run() (sched.Result, error) { return sched.Result{}, nil }

func TestRunnerRejectsIncompleteSchedule(t *testing.T) {
	_, err := Runner{Repetitions: 1, Logger: quietLogger()}.Run(toyProblem(t), lazy{}, trace.New(1, 1))
	assert.ErrorIs(t, err, sched.ErrSchedulingInvariant)
	assert.ErrorIs(t, err, jsp.ErrInvalidSchedule)
}
