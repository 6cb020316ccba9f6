package pipe

import "log/slog"

// Option customises the registry.
type Option func(r *Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}
