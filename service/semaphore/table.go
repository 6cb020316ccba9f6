// Package semaphore implements counting semaphores for processes. Each
// semaphore is guarded by a mutex taken with a single atomic exchange; both
// the mutex and the count block their callers through the scheduler and wake
// them in FIFO order, skipping waiters that died while queued.
package semaphore

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/viant/kcore/internal/queue"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
)

const recordSize = 64

// Table is the fixed set of semaphore slots keyed by id.
type Table struct {
	config    Config
	slots     []*Semaphore
	nodes     *queue.Pool[process.Ref]
	scheduler Scheduler
	yielder   Yielder
	memory    Allocator
	logger    *slog.Logger
}

// Init creates semaphore id with the given count; the caller holds it open.
func (t *Table) Init(id int, value uint32) error {
	if id < 0 || id >= len(t.slots) {
		return fmt.Errorf("%w: semaphore id %d", model.ErrInvalidArgument, id)
	}
	if t.slots[id] != nil {
		return fmt.Errorf("%w: semaphore %d already initialised", model.ErrInvalidArgument, id)
	}
	var addr process.Address
	if t.memory != nil {
		var ok bool
		if addr, ok = t.memory.Alloc(recordSize); !ok {
			return fmt.Errorf("%w: semaphore %d record", model.ErrResourceExhausted, id)
		}
	}
	t.slots[id] = &Semaphore{
		id:           id,
		value:        value,
		waiters:      t.nodes.NewList(),
		mutexWaiters: t.nodes.NewList(),
		opens:        1,
		address:      addr,
	}
	t.logger.Debug("semaphore initialised", "id", id, "value", value)
	return nil
}

// Open takes another reference to an initialised semaphore.
func (t *Table) Open(id int) error {
	s, err := t.get(id)
	if err != nil {
		return err
	}
	s.opens++
	return nil
}

// Close drops a reference; the slot is freed once unreferenced and unused.
func (t *Table) Close(id int) error {
	s, err := t.get(id)
	if err != nil {
		return err
	}
	if s.opens > 0 {
		s.opens--
	}
	t.prune(s.waiters)
	t.prune(s.mutexWaiters)
	if s.opens == 0 && s.Waiting() == 0 {
		t.free(s)
	}
	return nil
}

// Destroy frees the slot; it fails while any live process waits on it.
func (t *Table) Destroy(id int) error {
	s, err := t.get(id)
	if err != nil {
		return err
	}
	t.prune(s.waiters)
	t.prune(s.mutexWaiters)
	if s.Waiting() > 0 {
		return fmt.Errorf("%w: semaphore %d has %d waiters", model.ErrPermissionDenied, id, s.Waiting())
	}
	t.free(s)
	return nil
}

// Wait decrements the count, blocking the running process while it is zero.
func (t *Table) Wait(id int) error {
	s, err := t.get(id)
	if err != nil {
		return err
	}
	self, err := t.self()
	if err != nil {
		return err
	}
	if err = t.acquire(s, self); err != nil {
		return err
	}
	for s.value == 0 {
		if _, queued := s.waiters.Find(isRef(self)); !queued {
			if _, err = s.waiters.Append(self); err != nil {
				t.release(s)
				return fmt.Errorf("%w: %v", model.ErrResourceExhausted, err)
			}
		}
		if err = t.scheduler.SetStatus(self.PID, process.Blocked); err != nil {
			t.release(s)
			return err
		}
		t.release(s)
		t.yielder.Yield()
		if err = t.acquire(s, self); err != nil {
			return err
		}
		if t.slots[id] != s {
			t.release(s)
			return fmt.Errorf("%w: semaphore %d destroyed while waiting", model.ErrNotFound, id)
		}
	}
	t.dequeue(s.waiters, self)
	s.value--
	t.release(s)
	return nil
}

// Post increments the count, wakes one waiter and yields.
func (t *Table) Post(id int) error {
	s, err := t.get(id)
	if err != nil {
		return err
	}
	self, err := t.self()
	if err != nil {
		return err
	}
	if err = t.acquire(s, self); err != nil {
		return err
	}
	if s.value == math.MaxUint32 {
		t.release(s)
		return fmt.Errorf("%w: semaphore %d count overflow", model.ErrResourceExhausted, id)
	}
	s.value++
	t.wakeOne(s.waiters)
	t.release(s)
	t.yielder.Yield()
	return nil
}

// Value returns the count of semaphore id.
func (t *Table) Value(id int) (uint32, error) {
	s, err := t.get(id)
	if err != nil {
		return 0, err
	}
	return s.value, nil
}

// Get returns semaphore id.
func (t *Table) Get(id int) (*Semaphore, error) {
	return t.get(id)
}

// acquire takes the mutex, queueing and blocking the caller while another holds it.
func (t *Table) acquire(s *Semaphore, self process.Ref) error {
	for s.mutex.Swap(1) != 0 {
		if _, queued := s.mutexWaiters.Find(isRef(self)); !queued {
			if _, err := s.mutexWaiters.Append(self); err != nil {
				return fmt.Errorf("%w: %v", model.ErrResourceExhausted, err)
			}
		}
		if err := t.scheduler.SetStatus(self.PID, process.Blocked); err != nil {
			return err
		}
		t.yielder.Yield()
	}
	t.dequeue(s.mutexWaiters, self)
	return nil
}

// release wakes one mutex waiter and clears the mutex word.
func (t *Table) release(s *Semaphore) {
	t.wakeOne(s.mutexWaiters)
	s.mutex.Store(0)
}

// wakeOne readies the first live waiter of list, dropping dead ones.
func (t *Table) wakeOne(list *queue.List[process.Ref]) bool {
	for {
		h, ref, ok := list.PopFront()
		if !ok {
			return false
		}
		_ = t.nodes.Release(h)
		if !t.scheduler.Alive(ref) {
			t.logger.Debug("skipping dead waiter", "pid", ref.PID)
			continue
		}
		if err := t.scheduler.SetStatus(ref.PID, process.Ready); err != nil {
			t.logger.Warn("cannot wake waiter", "pid", ref.PID, "error", err)
			continue
		}
		return true
	}
}

func (t *Table) dequeue(list *queue.List[process.Ref], ref process.Ref) {
	if h, ok := list.Find(isRef(ref)); ok {
		_, _ = list.Remove(h)
	}
}

func (t *Table) prune(list *queue.List[process.Ref]) {
	for {
		h, ok := list.Find(func(ref process.Ref) bool { return !t.scheduler.Alive(ref) })
		if !ok {
			return
		}
		_, _ = list.Remove(h)
	}
}

func (t *Table) free(s *Semaphore) {
	t.slots[s.id] = nil
	if t.memory != nil {
		t.memory.Free(s.address)
	}
	t.logger.Debug("semaphore freed", "id", s.id)
}

func (t *Table) get(id int) (*Semaphore, error) {
	if id < 0 || id >= len(t.slots) {
		return nil, fmt.Errorf("%w: semaphore id %d", model.ErrInvalidArgument, id)
	}
	s := t.slots[id]
	if s == nil {
		return nil, fmt.Errorf("%w: semaphore %d", model.ErrNotFound, id)
	}
	return s, nil
}

func (t *Table) self() (process.Ref, error) {
	p, ok := t.scheduler.Lookup(t.scheduler.Current())
	if !ok {
		return process.Ref{}, fmt.Errorf("%w: semaphore operation outside a process", model.ErrProtocolViolation)
	}
	return p.Ref(), nil
}

func isRef(ref process.Ref) func(process.Ref) bool {
	return func(candidate process.Ref) bool { return candidate == ref }
}

// New creates a semaphore table.
func New(config Config, scheduler Scheduler, yielder Yielder, opts ...Option) *Table {
	if config.MaxSemaphores <= 0 {
		config = DefaultConfig()
	}
	ret := &Table{
		config:    config,
		slots:     make([]*Semaphore, config.MaxSemaphores),
		nodes:     queue.NewPool[process.Ref](0),
		scheduler: scheduler,
		yielder:   yielder,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
