// Package pipe keeps the endpoint bookkeeping of pipes: which processes hold
// a read or write end of each pipe descriptor. Data transfer is not modelled.
package pipe

import (
	"fmt"
	"log/slog"

	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
)

// Mode selects the pipe end.
type Mode uint8

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Read {
		return "read"
	}
	return "write"
}

type endpoints struct {
	readers map[process.PID]int
	writers map[process.PID]int
	opened  bool
}

func (e *endpoints) of(mode Mode) map[process.PID]int {
	if mode == Read {
		return e.readers
	}
	return e.writers
}

// Registry tracks pipes by descriptor value.
type Registry struct {
	pipes  map[process.FD]*endpoints
	next   process.FD
	max    int
	logger *slog.Logger
}

// Create allocates a new pipe descriptor.
func (r *Registry) Create() (process.FD, error) {
	if len(r.pipes) >= r.max {
		return 0, fmt.Errorf("%w: %d pipes open", model.ErrResourceExhausted, len(r.pipes))
	}
	for {
		fd := r.next
		r.next++
		if r.next < process.BuiltinDescriptors {
			r.next = process.BuiltinDescriptors
		}
		if _, ok := r.pipes[fd]; ok {
			continue
		}
		r.pipes[fd] = &endpoints{readers: map[process.PID]int{}, writers: map[process.PID]int{}}
		return fd, nil
	}
}

// Open attaches pid to one end of the pipe fd.
func (r *Registry) Open(pid process.PID, fd process.FD, mode Mode) error {
	if fd < process.BuiltinDescriptors {
		return fmt.Errorf("%w: descriptor %d is not a pipe", model.ErrInvalidArgument, fd)
	}
	e, ok := r.pipes[fd]
	if !ok {
		return fmt.Errorf("%w: pipe %d", model.ErrNotFound, fd)
	}
	e.of(mode)[pid]++
	e.opened = true
	r.logger.Debug("pipe opened", "pid", pid, "fd", fd, "mode", mode)
	return nil
}

// Close detaches pid from the pipe fd; the pipe is dropped once no end is held.
func (r *Registry) Close(pid process.PID, fd process.FD, mode Mode) {
	e, ok := r.pipes[fd]
	if !ok {
		return
	}
	holders := e.of(mode)
	if holders[pid] > 1 {
		holders[pid]--
	} else {
		delete(holders, pid)
	}
	if e.opened && len(e.readers) == 0 && len(e.writers) == 0 {
		delete(r.pipes, fd)
		r.logger.Debug("pipe released", "fd", fd)
	}
}

// Endpoints returns the number of processes holding each end of fd.
func (r *Registry) Endpoints(fd process.FD) (readers int, writers int, ok bool) {
	e, ok := r.pipes[fd]
	if !ok {
		return 0, 0, false
	}
	return len(e.readers), len(e.writers), true
}

// New creates a registry holding at most max pipes.
func New(max int, opts ...Option) *Registry {
	if max <= 0 {
		max = 64
	}
	ret := &Registry{
		pipes:  map[process.FD]*endpoints{},
		next:   process.BuiltinDescriptors,
		max:    max,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
