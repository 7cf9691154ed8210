package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the solver's run settings
type Config struct {
	Run    RunConfig    `toml:"run"`
	Trace  TraceConfig  `toml:"trace"`
	Output OutputConfig `toml:"output"`
}

// RunConfig controls the repetition harness and worker pool
type RunConfig struct {
	Threads     int `toml:"threads"`
	Repetitions int `toml:"repetitions"`
}

type TraceConfig struct {
	Capacity int `toml:"capacity"`
}

type OutputConfig struct {
	LogDir string `toml:"log_dir"`
}

// Default returns a Config with the solver's historical settings
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Threads:     4,
			Repetitions: 10,
		},
		Trace: TraceConfig{
			Capacity: 10000,
		},
		Output: OutputConfig{
			LogDir: "logs",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Output.LogDir = ExpandPath(cfg.Output.LogDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Run.Threads <= 0 {
		return fmt.Errorf("run.threads must be > 0 (got %d)", c.Run.Threads)
	}
	if c.Run.Repetitions <= 0 {
		return fmt.Errorf("run.repetitions must be > 0 (got %d)", c.Run.Repetitions)
	}
	if c.Trace.Capacity < 0 {
		return fmt.Errorf("trace.capacity must be >= 0 (got %d)", c.Trace.Capacity)
	}
	if c.Output.LogDir == "" {
		return fmt.Errorf("output.log_dir must not be empty")
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath is jobshop.toml in the working directory
func DefaultConfigPath() string {
	return "jobshop.toml"
}
