package cpu

import "log/slog"

// Option customises the machine.
type Option func(m *Machine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}
