package memory

import "log/slog"

// Option customises the allocator.
type Option func(a *Allocator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}
