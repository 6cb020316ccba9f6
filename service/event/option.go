package event

import (
	"log/slog"

	"github.com/viant/kcore/service/messaging/memory"
)

type Option func(s *Service)

// WithNewMemoryQueueConfig sets the queue configuration per event type
func WithNewMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.newQueueConfig = newConfig
	}
}

// WithLogger sets the listener logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
