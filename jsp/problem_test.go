package jsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toyProblem(t *testing.T) *Problem {
	t.Helper()
	problem, err := NewProblem("toy", 2, [][]WorkPair{
		{{0, 3}, {1, 2}},
		{{1, 2}, {0, 4}},
	})
	require.NoError(t, err)
	return problem
}

func assign(p *Problem, starts [][]int) {
	for j, row := range starts {
		for o, start := range row {
			p.Operation(j, o).Start = start
		}
	}
}

func TestMakespanAndVerify(t *testing.T) {
	problem := toyProblem(t)
	assert.Equal(t, 0, problem.Makespan())

	assign(problem, [][]int{{0, 3}, {0, 3}})
	assert.True(t, problem.Complete())
	assert.Equal(t, 7, problem.Makespan())
	assert.NoError(t, problem.Verify())
	assert.Equal(t, [][]int{{0, 3}, {0, 3}}, problem.Starts())

	problem.Reset()
	assert.False(t, problem.Complete())
	assert.Equal(t, 0, problem.Makespan())
}

func TestVerifyRejects(t *testing.T) {
	tests := []struct {
		name   string
		starts [][]int
		want   string
	}{
		{"unscheduled", [][]int{{0, 3}, {0, Unscheduled}}, "job 1 op 1 is unscheduled"},
		{"precedence", [][]int{{0, 2}, {0, 3}}, "before op 0 ends"},
		{"machine overlap", [][]int{{0, 3}, {0, 2}}, "machine 0"},
		{"negative", [][]int{{-2, 3}, {0, 3}}, "starts at -2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := toyProblem(t)
			assign(problem, tt.starts)
			err := problem.Verify()
			require.ErrorIs(t, err, ErrInvalidSchedule)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVerifyZeroDurationTouching(t *testing.T) {
	problem, err := NewProblem("zero", 1, [][]WorkPair{{{0, 0}}, {{0, 5}}, {{0, 0}}})
	require.NoError(t, err)
	// a zero-length operation at the boundary of another does not overlap it
	assign(problem, [][]int{{5}, {0}, {0}})
	assert.NoError(t, problem.Verify())

	// but inside it does
	assign(problem, [][]int{{2}, {0}, {0}})
	assert.ErrorIs(t, problem.Verify(), ErrInvalidSchedule)
}

func TestNewProblemRejectsMachineCount(t *testing.T) {
	_, err := NewProblem("none", 0, nil)
	assert.ErrorIs(t, err, ErrMalformedProblem)
}
