package scheduler

import "fmt"

// Config sizes the scheduler tables.
type Config struct {
	// MaxProcesses bounds pids to [1, MaxProcesses).
	MaxProcesses int `json:"maxProcesses" yaml:"maxProcesses"`
}

// DefaultConfig returns the default table size.
func DefaultConfig() Config {
	return Config{MaxProcesses: 4096}
}

// Validate checks the table size.
func (c Config) Validate() error {
	if c.MaxProcesses < 2 || c.MaxProcesses > 1<<16 {
		return fmt.Errorf("scheduler.maxProcesses must be in [2, 65536], got %d", c.MaxProcesses)
	}
	return nil
}
