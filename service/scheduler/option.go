package scheduler

import "log/slog"

// Option customises the scheduler.
type Option func(s *Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}
