package kernel

import (
	"context"
	"io"
	"log/slog"

	"github.com/viant/kcore/service/event"
)

// Option customises the kernel.
type Option func(k *Kernel)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// WithConsole sets where process output is written.
func WithConsole(w io.Writer) Option {
	return func(k *Kernel) {
		k.console = w
	}
}

// WithEvents publishes lifecycle changes on the event service.
func WithEvents(events *event.Service) Option {
	return func(k *Kernel) {
		k.events = events
	}
}

// WithPrograms registers programs by name.
func WithPrograms(programs map[string]Program) Option {
	return func(k *Kernel) {
		for name, program := range programs {
			k.programs[name] = program
		}
	}
}

// WithContext sets the parent context of kernel spans and event publishing.
func WithContext(ctx context.Context) Option {
	return func(k *Kernel) {
		k.ctx = ctx
	}
}

// WithBootID overrides the generated boot id.
func WithBootID(id string) Option {
	return func(k *Kernel) {
		k.bootID = id
	}
}
