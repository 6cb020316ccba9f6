package kcore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/kcore/runtime/kernel"
	"github.com/viant/kcore/service/event"
	"github.com/viant/kcore/service/messaging/memory"
	"github.com/viant/kcore/service/meta"
	"github.com/viant/kcore/service/program"
	"github.com/viant/kcore/tracing"
)

const (
	serviceName    = "kcore"
	serviceVersion = "0.1.0"
)

// Service wires a kernel with its programs, event stream and boot manifest.
type Service struct {
	config        *Config
	logger        *slog.Logger
	console       io.Writer
	bootID        string
	programs      map[string]kernel.Program
	eventService  *event.Service
	ownEvents     bool
	metaService   *meta.Service
	metaBaseURL   string
	metaFsOptions []storage.Option
	runtime       *Runtime
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.eventService == nil && s.config.Events.Enabled {
		buffer := s.config.Events.Buffer
		s.eventService = event.New(
			event.WithLogger(s.logger),
			event.WithNewMemoryQueueConfig(func(string) memory.Config {
				config := memory.DefaultConfig()
				config.QueueBuffer = buffer
				return config
			}),
		)
		s.ownEvents = true
	}
	if s.config.Trace.Enabled {
		if err := tracing.Init(serviceName, serviceVersion, s.config.Trace.Output); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	kernelOptions := []kernel.Option{
		kernel.WithLogger(s.logger),
		kernel.WithConsole(s.console),
		kernel.WithPrograms(s.programs),
	}
	if s.eventService != nil {
		kernelOptions = append(kernelOptions, kernel.WithEvents(s.eventService))
	}
	if s.bootID != "" {
		kernelOptions = append(kernelOptions, kernel.WithBootID(s.bootID))
	}
	s.runtime = &Runtime{kernel: kernel.New(s.config.Kernel, kernelOptions...)}
	return nil
}

// Runtime returns the host handle of the kernel.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Events returns the lifecycle event service, nil when events are disabled.
func (s *Service) Events() *event.Service {
	return s.eventService
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Boot runs the configured shell as init until it finishes or ctx is done,
// returning its exit status. A kernel boots once.
func (s *Service) Boot(ctx context.Context) (int32, error) {
	lines, err := s.script(ctx)
	if err != nil {
		return 0, err
	}
	args := lines
	if s.config.Boot.Interactive {
		args = append([]string{"-i"}, lines...)
	}
	return s.runtime.kernel.Run(ctx, kernel.Spawn{
		Name:       s.config.Boot.Shell,
		Args:       args,
		Priority:   s.config.Boot.Priority,
		Unkillable: true,
	})
}

// script returns the configured lines followed by the manifest lines.
func (s *Service) script(ctx context.Context) ([]string, error) {
	lines := append([]string{}, s.config.Boot.Script...)
	if s.config.Boot.Manifest == "" {
		return lines, nil
	}
	manifest := &Manifest{}
	if err := s.metaService.Load(ctx, s.config.Boot.Manifest, manifest); err != nil {
		return nil, fmt.Errorf("failed to load boot manifest: %w", err)
	}
	return append(lines, manifest.Lines...), nil
}

// Close stops event listeners started on a service-owned event stream.
func (s *Service) Close() {
	if s.ownEvents {
		s.eventService.Close()
	}
}

// New creates a service; a nil config means DefaultConfig.
func New(config *Config, options ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ret := &Service{
		config:   config,
		logger:   slog.Default(),
		console:  os.Stdout,
		programs: program.Builtins(),
	}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
