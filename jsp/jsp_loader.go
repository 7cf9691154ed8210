package jsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Instance is one entry of an instance catalog (the JSPLIB instances.json layout).
type Instance struct {
	Name     string       `json:"name" yaml:"name"`
	Jobs     int          `json:"jobs" yaml:"jobs"`
	Machines int          `json:"machines" yaml:"machines"`
	Optimum  int          `json:"optimum" yaml:"optimum"`
	Path     string       `json:"path" yaml:"path"`
	Work     [][]WorkPair `json:"work,omitempty" yaml:"work,omitempty"`
}

// Problem builds an unscheduled Problem from the instance's work table.
func (instance *Instance) Problem() (*Problem, error) {
	if len(instance.Work) != instance.Jobs {
		return nil, fmt.Errorf("%w: %s: expected %d jobs, found %d",
			ErrMalformedProblem, instance.Name, instance.Jobs, len(instance.Work))
	}
	return NewProblem(instance.Name, instance.Machines, instance.Work)
}

// ReadProblem parses the text format: a "jobs machines" header followed by
// machines pairs of "machine duration" per job. Lines starting with '#' are
// comments. Tokens may be spread over lines freely.
func ReadProblem(r io.Reader, name string) (*Problem, error) {
	var tokens [][]byte
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' {
			tokens = append(tokens, bytes.Fields(trimmed)...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	next := 0
	read := func(what string) (int, error) {
		if next >= len(tokens) {
			return 0, fmt.Errorf("%w: %s: missing %s", ErrMalformedProblem, name, what)
		}
		value, err := strconv.Atoi(string(tokens[next]))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %s: %q is not an integer", ErrMalformedProblem, name, what, tokens[next])
		}
		next++
		return value, nil
	}

	jobs, err := read("job count")
	if err != nil {
		return nil, err
	}
	machines, err := read("machine count")
	if err != nil {
		return nil, err
	}
	if jobs < 0 {
		return nil, fmt.Errorf("%w: %s: job count must be >= 0 (got %d)", ErrMalformedProblem, name, jobs)
	}
	if machines <= 0 {
		return nil, fmt.Errorf("%w: %s: machine count must be > 0 (got %d)", ErrMalformedProblem, name, machines)
	}

	work := make([][]WorkPair, jobs)
	for j := 0; j < jobs; j++ {
		work[j] = make([]WorkPair, 0, machines)
		for o := 0; o < machines; o++ {
			what := fmt.Sprintf("job %d op %d", j, o)
			machine, err := read(what + " machine")
			if err != nil {
				return nil, err
			}
			duration, err := read(what + " duration")
			if err != nil {
				return nil, err
			}
			work[j] = append(work[j], WorkPair{Machine: machine, Duration: duration})
		}
	}
	return NewProblem(name, machines, work)
}

// LoadProblem reads a problem file; the problem is named after the file's base name.
func LoadProblem(path string) (*Problem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadProblem(file, BaseName(path))
}

// BaseName strips directories and the last extension from path.
func BaseName(path string) string {
	name := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		name = name[:dot]
	}
	return name
}

// LoadCatalog reads an instance catalog and the problem file of every entry
// that does not carry its work table inline. Paths are relative to the catalog.
func LoadCatalog(path string) ([]*Instance, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var instances []*Instance
	if err := yaml.Unmarshal(fileBytes, &instances); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, instance := range instances {
		if len(instance.Work) > 0 {
			continue
		}
		problem, err := LoadProblem(filepath.Join(dir, instance.Path))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: instance %s: %w", path, instance.Name, err)
		}
		if problem.JobCount() != instance.Jobs || problem.Machines != instance.Machines {
			return nil, fmt.Errorf("%w: instance %s: catalog says %dx%d, file has %dx%d", ErrMalformedProblem,
				instance.Name, instance.Jobs, instance.Machines, problem.JobCount(), problem.Machines)
		}
		instance.Work = make([][]WorkPair, problem.JobCount())
		for j, job := range problem.Jobs {
			for _, op := range job.Operations {
				instance.Work[j] = append(instance.Work[j], WorkPair{Machine: op.Machine, Duration: op.Duration})
			}
		}
	}
	return instances, nil
}

// Random builds a jobs x machines instance where every job visits each machine
// once in shuffled order.
func Random(jobs, machines int, rng *rand.Rand) *Instance {
	work := make([][]WorkPair, jobs)
	for j := 0; j < jobs; j++ {
		row := make([]WorkPair, machines)
		for m := 0; m < machines; m++ {
			row[m] = WorkPair{m, rng.Intn(200) + 20}
		}
		rng.Shuffle(len(row), func(i, j int) {
			row[i], row[j] = row[j], row[i]
		})
		work[j] = row
	}
	return &Instance{
		Name:     fmt.Sprintf("rand%dx%d", jobs, machines),
		Jobs:     jobs,
		Machines: machines,
		Work:     work,
	}
}
