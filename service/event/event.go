package event

import (
	"time"

	"github.com/viant/kcore/internal/clock"
)

// Context identifies where an event was raised.
type Context struct {
	BootID    string `json:"bootID" yaml:"bootID"`
	PID       uint16 `json:"pid" yaml:"pid"`
	EventType string `json:"eventType" yaml:"eventType"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}
