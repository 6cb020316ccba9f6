package lifecycle

import (
	"context"
	"log/slog"

	"github.com/viant/kcore/model/process"
)

// Option customises the manager.
type Option func(m *Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPipes enables pipe descriptors.
func WithPipes(pipes Pipes) Option {
	return func(m *Manager) {
		m.pipes = pipes
	}
}

// WithYielder sets how blocked callers give up the processor.
func WithYielder(yielder Yielder) Option {
	return func(m *Manager) {
		m.yielder = yielder
	}
}

// WithListener receives every lifecycle change.
func WithListener(listener func(change process.Change)) Option {
	return func(m *Manager) {
		m.listener = listener
	}
}

// WithContext sets the parent context of lifecycle spans.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.ctx = ctx
	}
}
