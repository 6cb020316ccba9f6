package kcore

import (
	"io"
	"log/slog"

	"github.com/viant/afs/storage"
	"github.com/viant/kcore/runtime/kernel"
	"github.com/viant/kcore/service/event"
	"github.com/viant/kcore/service/meta"
	"github.com/viant/kcore/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service.
type Option func(s *Service)

// WithLogger sets the logger shared by the kernel and its subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConsole sets where process output is written.
func WithConsole(w io.Writer) Option {
	return func(s *Service) {
		s.console = w
	}
}

// WithEventService publishes lifecycle changes on the supplied event service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithMetaService sets the meta service used to load boot manifests.
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithMetaBaseURL sets the meta base URL
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithPrograms registers additional programs, replacing built-ins of the same name.
func WithPrograms(programs map[string]kernel.Program) Option {
	return func(s *Service) {
		for name, program := range programs {
			s.programs[name] = program
		}
	}
}

// WithBootID overrides the generated boot id.
func WithBootID(id string) Option {
	return func(s *Service) {
		s.bootID = id
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.logger.Warn("tracing disabled", "error", err)
		}
	}
}
