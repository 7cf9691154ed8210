package sched

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobshop_greedy/jsp"
	"jobshop_greedy/trace"
)

func jobOrder(entries []trace.Entry) [][2]int {
	order := make([][2]int, 0, len(entries))
	for _, e := range entries {
		order = append(order, [2]int{e.Job, e.Op})
	}
	return order
}

func TestCoordinatorToyProblem(t *testing.T) {
	for _, threads := range []int{1, 2} {
		problem := toyProblem(t)
		coordinator := NewCoordinator(problem, Options{Threads: threads, Logger: quietLogger()})

		result, err := coordinator.Run()
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 3}, {0, 3}}, problem.Starts(), "threads %d", threads)
		assert.Equal(t, 7, result.Makespan)
		assert.Equal(t, threads, result.Threads)
		assert.Equal(t, 2, result.Rounds)
		assert.False(t, result.Deadlock)
	}
}

func TestCoordinatorTracesPerWorker(t *testing.T) {
	problem := toyProblem(t)
	coordinator := NewCoordinator(problem, Options{Threads: 2, Logger: quietLogger()})
	_, err := coordinator.Run()
	require.NoError(t, err)

	lanes := coordinator.Trace().Drain()
	require.Len(t, lanes, 2)
	assert.Equal(t, [][2]int{{0, 0}, {0, 1}}, jobOrder(lanes[0]))
	assert.Equal(t, [][2]int{{1, 0}, {1, 1}}, jobOrder(lanes[1]))
}

func TestCoordinatorRandomProblemsAreValid(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		for _, threads := range []int{1, 2, 3, 4, 8, 16} {
			problem := randomProblem(t, 5+int(seed%6), 3+int(seed%4), seed)
			result, err := NewCoordinator(problem, Options{Threads: threads, Logger: quietLogger()}).Run()
			require.NoError(t, err)
			require.NoError(t, problem.Verify(), "seed %d threads %d", seed, threads)
			assert.Equal(t, problem.Makespan(), result.Makespan)
			assert.LessOrEqual(t, result.Threads, problem.TotalOperations())
		}
	}
}

func TestCoordinatorIsDeterministicPerThreadCount(t *testing.T) {
	for _, threads := range []int{2, 3, 5} {
		problem := randomProblem(t, 12, 6, 99)
		coordinator := NewCoordinator(problem, Options{Threads: threads, Logger: quietLogger()})

		first, err := coordinator.Run()
		require.NoError(t, err)
		starts := problem.Starts()

		for i := 0; i < 5; i++ {
			problem.Reset()
			again, err := coordinator.Run()
			require.NoError(t, err)
			assert.Equal(t, first.Makespan, again.Makespan)
			assert.Equal(t, starts, problem.Starts(), "threads %d repetition %d", threads, i)
		}
	}
}

func TestCoordinatorSingleThreadMatchesJobOrder(t *testing.T) {
	// one worker owning every job advances them round by round in job order
	problem := randomProblem(t, 4, 3, 5)
	_, err := NewCoordinator(problem, Options{Threads: 1, Logger: quietLogger()}).Run()
	require.NoError(t, err)
	require.NoError(t, problem.Verify())
}

func TestCoordinatorMoreThreadsThanJobs(t *testing.T) {
	problem := randomProblem(t, 5, 3, 11)
	coordinator := NewCoordinator(problem, Options{Threads: 10, Logger: quietLogger()})
	assert.Equal(t, 8, coordinator.Threads())

	result, err := coordinator.Run()
	require.NoError(t, err)
	assert.NoError(t, problem.Verify())
	assert.True(t, problem.Complete())
	assert.Equal(t, 3, result.Rounds)

	oneOpJobs, err := jsp.NewProblem("thin", 2, [][]jsp.WorkPair{
		{{Machine: 0, Duration: 1}}, {{Machine: 1, Duration: 1}}, {{Machine: 0, Duration: 2}},
		{{Machine: 1, Duration: 3}}, {{Machine: 0, Duration: 1}},
	})
	require.NoError(t, err)
	coordinator = NewCoordinator(oneOpJobs, Options{Threads: 10, Logger: quietLogger()})
	assert.Equal(t, 5, coordinator.Threads())
	_, err = coordinator.Run()
	require.NoError(t, err)
	assert.NoError(t, oneOpJobs.Verify())
}

func TestCoordinatorReassignsToIdleWorker(t *testing.T) {
	problem := toyProblem(t)
	// worker 1 never gets scheduled; worker 2 owns no job until it is handed one
	admit := func(round, worker int) bool { return worker != 1 }
	coordinator := NewCoordinator(problem, Options{Threads: 3, Admit: admit, Logger: quietLogger()})
	require.Equal(t, 3, coordinator.Threads())

	result, err := coordinator.Run()
	require.NoError(t, err)
	assert.NoError(t, problem.Verify())
	assert.False(t, result.Deadlock)
	// job1 goes to idle worker 1 first, then to worker 2 which runs it
	assert.Equal(t, 2, result.Reassignments)
	assert.Equal(t, 6, result.Rounds)

	lanes := coordinator.Trace().Drain()
	assert.Equal(t, [][2]int{{0, 0}, {0, 1}}, jobOrder(lanes[0]))
	assert.Empty(t, lanes[1])
	assert.Equal(t, [][2]int{{1, 0}, {1, 1}}, jobOrder(lanes[2]))
}

func TestCoordinatorDeadlockFallsBackToOneWorker(t *testing.T) {
	problem, err := jsp.NewProblem("stuck", 2, [][]jsp.WorkPair{
		{{Machine: 0, Duration: 3}, {Machine: 1, Duration: 2}},
		{{Machine: 1, Duration: 2}, {Machine: 0, Duration: 4}},
		{{Machine: 0, Duration: 1}, {Machine: 1, Duration: 1}},
		{{Machine: 1, Duration: 5}, {Machine: 0, Duration: 2}},
	})
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	admit := func(round, worker int) bool { return worker == 0 }
	coordinator := NewCoordinator(problem, Options{Threads: 4, Admit: admit, Logger: logger})

	result, err := coordinator.Run()
	require.NoError(t, err)
	assert.NoError(t, problem.Verify())
	assert.True(t, result.Deadlock)
	assert.Equal(t, 3, result.Reassignments)
	assert.Equal(t, 4, result.Rounds)
	assert.Contains(t, logs.String(), "deadlock detected")

	lanes := coordinator.Trace().Drain()
	// the fallback records on worker 0 in job-major order
	assert.Equal(t, [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}, {3, 0}, {3, 1}}, jobOrder(lanes[0]))
	for _, lane := range lanes[1:] {
		assert.Empty(t, lane)
	}
}

func TestCoordinatorNoWorkersAdmitted(t *testing.T) {
	problem := randomProblem(t, 3, 2, 3)
	admit := func(round, worker int) bool { return false }
	result, err := NewCoordinator(problem, Options{Threads: 2, Admit: admit, Logger: quietLogger()}).Run()
	require.NoError(t, err)
	assert.True(t, result.Deadlock)
	assert.NoError(t, problem.Verify())
}

func TestCoordinatorIterationCap(t *testing.T) {
	problem := toyProblem(t)
	_, err := NewCoordinator(problem, Options{Threads: 1, MaxRounds: 1, Logger: quietLogger()}).Run()
	require.ErrorIs(t, err, ErrIterationCap)
	assert.ErrorIs(t, err, ErrSchedulingInvariant)
	// a failed run leaves no partial schedule behind
	assert.Equal(t, [][]int{{jsp.Unscheduled, jsp.Unscheduled}, {jsp.Unscheduled, jsp.Unscheduled}}, problem.Starts())
}

func TestCoordinatorEmptyProblem(t *testing.T) {
	problem, err := jsp.NewProblem("none", 1, nil)
	require.NoError(t, err)
	result, err := NewCoordinator(problem, Options{Threads: 4, Logger: quietLogger()}).Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rounds)
	assert.Equal(t, 1, result.Threads)
}
