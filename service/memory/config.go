package memory

import "fmt"

// Config defines the managed address range.
type Config struct {
	// Base is the first managed address; it must be non-zero so that 0 stays the null address.
	Base uint64 `json:"base" yaml:"base"`
	// Size is the number of managed bytes.
	Size uint64 `json:"size" yaml:"size"`
}

// DefaultConfig returns a 64MiB pool placed at 6MiB.
func DefaultConfig() Config {
	return Config{Base: 0x600000, Size: 64 << 20}
}

// Validate checks the pool boundaries.
func (c Config) Validate() error {
	if c.Base == 0 {
		return fmt.Errorf("memory.base must be > 0")
	}
	if c.Size < 2*unitSize {
		return fmt.Errorf("memory.size must be >= %d", 2*unitSize)
	}
	return nil
}
