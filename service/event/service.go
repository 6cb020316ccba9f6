// Package event carries typed kernel events (process lifecycle changes) from
// the kernel context to listeners running on their own goroutines.
package event

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/viant/kcore/service/messaging/memory"
)

type Service struct {
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]stopper
	mux             sync.RWMutex
	newQueueConfig  func(name string) memory.Config
	logger          *slog.Logger
}

type stopper interface{ Stop() }

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns the publisher for events carrying T
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](memory.NewQueue[Event[T]](s.newQueueConfig(key.String())))
	s.typedPublishers[key] = publisher
	return publisher
}

// SetListenerOf replaces the listener for events carrying T
func SetListenerOf[T any](ctx context.Context, s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	s.mux.Lock()
	previous, ok := s.typedListeners[key]
	listener := NewListener[T](publisher, handler, s.logger)
	s.typedListeners[key] = listener
	s.mux.Unlock()
	if ok {
		previous.Stop()
	}
	listener.Start(ctx)
}

// Close stops every listener
func (s *Service) Close() {
	s.mux.Lock()
	listeners := s.typedListeners
	s.typedListeners = make(map[reflect.Type]stopper)
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]stopper),
		newQueueConfig:  func(string) memory.Config { return memory.DefaultConfig() },
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
