// Package config provides JSON-backed run configuration for the simulator:
// memory sizing and the cycle budget used to guard against runaway
// programs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RunConfig controls the sizing and bounds of a simulation run.
type RunConfig struct {
	// InstructionMemoryWords is the word capacity of instruction memory.
	// Default: 512.
	InstructionMemoryWords int `json:"instruction_memory_words"`

	// DataMemoryWords is the word capacity of data memory. Default: 512.
	DataMemoryWords int `json:"data_memory_words"`

	// MaxCycles bounds how many cycles RunCycle will execute before the
	// caller should treat the run as non-terminating. 0 means unbounded.
	MaxCycles uint64 `json:"max_cycles"`
}

// DefaultRunConfig returns a RunConfig with the simulator's default memory
// sizes and an unbounded cycle budget.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		InstructionMemoryWords: 512,
		DataMemoryWords:        512,
		MaxCycles:              0,
	}
}

// Load reads a RunConfig from a JSON file, starting from the defaults so a
// file only needs to specify the fields it wants to override.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that memory sizes are usable.
func (c *RunConfig) Validate() error {
	if c.InstructionMemoryWords <= 0 {
		return fmt.Errorf("instruction_memory_words must be > 0")
	}
	if c.DataMemoryWords <= 0 {
		return fmt.Errorf("data_memory_words must be > 0")
	}
	return nil
}
