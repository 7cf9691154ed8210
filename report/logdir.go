package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jobshop_greedy/trace"
)

// LogDir names and writes the trace files for one input.
type LogDir struct {
	Dir string
}

func (l LogDir) path(name string) string {
	return filepath.Join(l.Dir, name)
}

func (l LogDir) ensure() error {
	return os.MkdirAll(l.Dir, 0o755)
}

func (l LogDir) write(name string, write func(io.Writer) error) error {
	file, err := os.Create(l.path(name))
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	return file.Close()
}

// SaveSequential writes <base>_timing_sequential.txt and <base>_sequence_sequential.txt.
func (l LogDir) SaveSequential(base string, entries []trace.Entry) error {
	if err := l.ensure(); err != nil {
		return err
	}
	err := l.write(base+"_timing_sequential.txt", func(w io.Writer) error {
		return WriteSequentialTiming(w, entries)
	})
	if err != nil {
		return err
	}
	return l.write(base+"_sequence_sequential.txt", func(w io.Writer) error {
		return WriteSequentialSequence(w, entries)
	})
}

// SaveThreads writes <base>_timing_<n>_threads.txt and <base>_sequence_<n>_threads.txt.
func (l LogDir) SaveThreads(base string, lanes [][]trace.Entry) error {
	if err := l.ensure(); err != nil {
		return err
	}
	err := l.write(fmt.Sprintf("%s_timing_%d_threads.txt", base, len(lanes)), func(w io.Writer) error {
		return WriteThreadTiming(w, lanes)
	})
	if err != nil {
		return err
	}
	return l.write(fmt.Sprintf("%s_sequence_%d_threads.txt", base, len(lanes)), func(w io.Writer) error {
		return WriteThreadSequence(w, lanes)
	})
}

// AppendSummary adds s to <base>_execution_times.txt.
func (l LogDir) AppendSummary(base string, s Summary) error {
	if err := l.ensure(); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path(base+"_execution_times.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(file, s.String()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
