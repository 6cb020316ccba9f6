package kernel

import (
	"fmt"
	"time"

	"github.com/viant/kcore/service/lifecycle"
	"github.com/viant/kcore/service/memory"
	"github.com/viant/kcore/service/scheduler"
	"github.com/viant/kcore/service/semaphore"
)

// Config sizes the kernel and its subsystems.
type Config struct {
	// TickInterval is the timer period; zero disables preemption.
	TickInterval time.Duration    `json:"tickInterval" yaml:"tickInterval"`
	MaxPipes     int              `json:"maxPipes" yaml:"maxPipes"`
	InputBuffer  int              `json:"inputBuffer" yaml:"inputBuffer"`
	Memory       memory.Config    `json:"memory" yaml:"memory"`
	Scheduler    scheduler.Config `json:"scheduler" yaml:"scheduler"`
	Lifecycle    lifecycle.Config `json:"lifecycle" yaml:"lifecycle"`
	Semaphore    semaphore.Config `json:"semaphore" yaml:"semaphore"`
}

// DefaultConfig returns a 10ms timer and the default subsystem sizes.
func DefaultConfig() Config {
	return Config{
		TickInterval: 10 * time.Millisecond,
		MaxPipes:     64,
		InputBuffer:  16,
		Memory:       memory.DefaultConfig(),
		Scheduler:    scheduler.DefaultConfig(),
		Lifecycle:    lifecycle.DefaultConfig(),
		Semaphore:    semaphore.DefaultConfig(),
	}
}

// Validate checks the kernel configuration.
func (c *Config) Validate() error {
	if c.TickInterval < 0 {
		return fmt.Errorf("kernel.tickInterval must be >= 0")
	}
	if c.MaxPipes <= 0 {
		return fmt.Errorf("kernel.maxPipes must be > 0")
	}
	if c.InputBuffer < 0 {
		return fmt.Errorf("kernel.inputBuffer must be >= 0")
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Lifecycle.Validate(); err != nil {
		return err
	}
	return c.Semaphore.Validate()
}
