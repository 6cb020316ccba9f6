package semaphore

import "log/slog"

// Option customises the table.
type Option func(t *Table)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithAllocator makes every semaphore record an allocation.
func WithAllocator(allocator Allocator) Option {
	return func(t *Table) {
		t.memory = allocator
	}
}
