package semaphore

import "fmt"

// Config sizes the semaphore table.
type Config struct {
	MaxSemaphores int `json:"maxSemaphores" yaml:"maxSemaphores"`
}

// DefaultConfig returns a 4096 slot table.
func DefaultConfig() Config {
	return Config{MaxSemaphores: 4096}
}

// Validate checks the table size.
func (c Config) Validate() error {
	if c.MaxSemaphores <= 0 {
		return fmt.Errorf("semaphore.maxSemaphores must be > 0")
	}
	return nil
}
