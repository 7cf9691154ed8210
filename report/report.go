// Package report writes schedules and traces in the plain-text layouts the
// solver has always produced, and reads solutions back for verification.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jobshop_greedy/jsp"
	"jobshop_greedy/trace"
)

// WriteSolution writes the makespan, then one line of "start,duration " pairs per job.
func WriteSolution(w io.Writer, problem *jsp.Problem) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "%d\n", problem.Makespan())
	for _, job := range problem.Jobs {
		for _, op := range job.Operations {
			fmt.Fprintf(out, "%d,%d ", op.Start, op.Duration)
		}
		fmt.Fprint(out, "\n")
	}
	return out.Flush()
}

func WriteSolutionFile(path string, problem *jsp.Problem) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSolution(file, problem); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadSolution loads the start times of a solution into problem and returns
// the makespan the file claims. Durations must match the problem.
func ReadSolution(r io.Reader, problem *jsp.Problem) (int, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("solution: missing makespan line")
	}
	makespan, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return 0, fmt.Errorf("solution: makespan: %w", err)
	}

	for j := range problem.Jobs {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("solution: missing line for job %d", j)
		}
		fields := strings.Fields(scanner.Text())
		ops := problem.Jobs[j].Operations
		if len(fields) != len(ops) {
			return 0, fmt.Errorf("solution: job %d has %d entries, want %d", j, len(fields), len(ops))
		}
		for o, field := range fields {
			start, duration, ok := strings.Cut(field, ",")
			if !ok {
				return 0, fmt.Errorf("solution: job %d op %d: %q is not start,duration", j, o, field)
			}
			s, err := strconv.Atoi(start)
			if err != nil {
				return 0, fmt.Errorf("solution: job %d op %d start: %w", j, o, err)
			}
			d, err := strconv.Atoi(duration)
			if err != nil {
				return 0, fmt.Errorf("solution: job %d op %d duration: %w", j, o, err)
			}
			if d != ops[o].Duration {
				return 0, fmt.Errorf("solution: job %d op %d: duration %d, problem says %d", j, o, d, ops[o].Duration)
			}
			ops[o].Start = s
		}
	}
	return makespan, scanner.Err()
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func totalCost(entries []trace.Entry) time.Duration {
	var total time.Duration
	for _, e := range entries {
		total += e.Cost
	}
	return total
}

func average(total time.Duration, count int) float64 {
	if count == 0 {
		return 0
	}
	return seconds(total) / float64(count)
}

// WriteSequentialTiming writes the one-row summary of a sequential trace.
func WriteSequentialTiming(w io.Writer, entries []trace.Entry) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "Total Operations | Total Time (s) | Avg Time per Op (s)\n")
	fmt.Fprintf(out, "------------------------------------------------------\n")
	total := totalCost(entries)
	fmt.Fprintf(out, "%16d | %13.8f | %16.8f\n", len(entries), seconds(total), average(total, len(entries)))
	return out.Flush()
}

// WriteSequentialSequence lists every decision in execution order.
func WriteSequentialSequence(w io.Writer, entries []trace.Entry) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "Execution Order | Job | Operation | Time (s)\n")
	fmt.Fprintf(out, "------------------------------------------\n")
	for i, e := range entries {
		fmt.Fprintf(out, "%14d | %3d | %9d | %0.8f seconds\n", i+1, e.Job, e.Op, seconds(e.Cost))
	}
	return out.Flush()
}

// WriteThreadTiming writes one summary row per worker lane.
func WriteThreadTiming(w io.Writer, lanes [][]trace.Entry) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "Thread ID | Operation Count | Total Time (s) | Avg Time per Op (s)\n")
	fmt.Fprintf(out, "---------------------------------------------------------------\n")
	for thread, entries := range lanes {
		total := totalCost(entries)
		fmt.Fprintf(out, "Thread %2d | %14d | %12.8f | %16.8f\n",
			thread, len(entries), seconds(total), average(total, len(entries)))
	}
	return out.Flush()
}

// WriteThreadSequence lists each worker's decisions, worker by worker.
func WriteThreadSequence(w io.Writer, lanes [][]trace.Entry) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "Thread ID | Job | Operation | Time (s)\n")
	fmt.Fprintf(out, "----------------------------------------\n")
	for thread, entries := range lanes {
		for _, e := range entries {
			fmt.Fprintf(out, "Thread %2d | Job %2d | Op %2d | %0.8f seconds\n", thread, e.Job, e.Op, seconds(e.Cost))
		}
	}
	return out.Flush()
}

// Summary is one line of the per-input execution times log.
type Summary struct {
	Input     string
	Parallel  bool
	Requested int
	Effective int
	Average   time.Duration
	RunID     string
}

func (s Summary) String() string {
	var line string
	if s.Parallel {
		line = fmt.Sprintf("Input: %s, Requested Threads: %d, Effective Threads: %d, Avg Time: %.6f seconds",
			s.Input, s.Requested, s.Effective, seconds(s.Average))
	} else {
		line = fmt.Sprintf("Input: %s, Sequential, Avg Time: %.6f seconds", s.Input, seconds(s.Average))
	}
	if s.RunID != "" {
		line += ", Run: " + s.RunID
	}
	return line
}
