package lifecycle

import "fmt"

// Config sizes process resources.
type Config struct {
	StackPages  int `json:"stackPages" yaml:"stackPages"`
	PageSize    int `json:"pageSize" yaml:"pageSize"`
	PIDPoolSize int `json:"pidPoolSize" yaml:"pidPoolSize"`
}

// DefaultConfig returns 8 pages of 4KiB per stack and a 4096 entry pid pool.
func DefaultConfig() Config {
	return Config{StackPages: 8, PageSize: 4096, PIDPoolSize: 4096}
}

// Validate checks resource sizes.
func (c Config) Validate() error {
	if c.StackPages <= 0 {
		return fmt.Errorf("lifecycle.stackPages must be > 0")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("lifecycle.pageSize must be > 0")
	}
	if c.PIDPoolSize < 0 {
		return fmt.Errorf("lifecycle.pidPoolSize must be >= 0")
	}
	return nil
}

// StackSize returns the stack region size in bytes.
func (c Config) StackSize() int {
	return c.StackPages * c.PageSize
}
