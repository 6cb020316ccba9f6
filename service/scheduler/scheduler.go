// Package scheduler implements the priority ready-queue scheduler: one FIFO
// per priority level plus a blocked queue, quantum accounting driven by the
// timer tick, demotion on quantum expiry and boost on unblock.
//
// Process nodes live in one pool and move between the ready levels, the
// blocked queue and parents' zombie lists; a PID indexed table keeps the node
// handle of every live process so any move is O(1).
package scheduler

import (
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/viant/kcore/internal/queue"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
)

// Scheduler owns the ready levels, the blocked queue and the current process.
// It is not safe for concurrent use; the kernel serialises every call except
// RequestForegroundKill.
type Scheduler struct {
	config           Config
	procs            []*process.Process
	index            []queue.Handle
	nodes            *queue.Pool[process.PID]
	ready            [process.Levels]*queue.List[process.PID]
	blocked          *queue.List[process.PID]
	current          process.PID
	remaining        uint32
	expired          bool
	killForeground   atomic.Bool
	idle             process.StackPointer
	hasIdle          bool
	onForegroundKill func(pid process.PID) error
	logger           *slog.Logger
}

// Quantum returns the number of ticks granted at priority: lower priorities
// run longer to compensate for being picked less often.
func Quantum(priority uint8) uint32 {
	if priority >= process.MaxPriority {
		return 1
	}
	return uint32(process.MaxPriority - priority)
}

// Register indexes p and queues it on the ready level matching its priority.
func (s *Scheduler) Register(p *process.Process) error {
	if p == nil {
		return fmt.Errorf("%w: nil process", model.ErrInvalidArgument)
	}
	if p.PID == process.NoPID || int(p.PID) >= len(s.procs) {
		return fmt.Errorf("%w: pid %d out of range", model.ErrInvalidArgument, p.PID)
	}
	if s.procs[p.PID] != nil {
		return fmt.Errorf("%w: pid %d already registered", model.ErrInvalidArgument, p.PID)
	}
	if p.Priority > process.MaxPriority {
		return fmt.Errorf("%w: priority %d", model.ErrInvalidArgument, p.Priority)
	}
	h, err := s.ready[p.Priority].Append(p.PID)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrResourceExhausted, err)
	}
	s.procs[p.PID] = p
	s.index[p.PID] = h
	p.State = process.Ready
	s.logger.Debug("process registered", "pid", p.PID, "priority", p.Priority)
	return nil
}

// SetStatus moves a process between Ready and Blocked. Unblocking boosts the
// process to MaxPriority, queues it first on that level and ends the quantum
// of the running process.
func (s *Scheduler) SetStatus(pid process.PID, state process.State) error {
	p, err := s.live(pid)
	if err != nil {
		return err
	}
	switch state {
	case process.Ready:
		if p.State != process.Blocked {
			return nil
		}
		h := s.index[pid]
		s.mustDetach(s.blocked, h)
		p.Priority = process.MaxPriority
		s.must(s.ready[p.Priority].PrependHandle(h))
		p.State = process.Ready
		if s.current != process.NoPID {
			s.remaining = 0
			s.expired = false
		}
	case process.Blocked:
		h := s.index[pid]
		switch p.State {
		case process.Blocked:
			return nil
		case process.Ready:
			s.mustDetach(s.ready[p.Priority], h)
		}
		s.must(s.blocked.AppendHandle(h))
		p.State = process.Blocked
	default:
		return fmt.Errorf("%w: %v is not a valid target state", model.ErrInvalidArgument, state)
	}
	s.logger.Debug("process state changed", "pid", pid, "state", p.State)
	return nil
}

// SetPriority changes the priority; a Ready process moves to the new level at once.
func (s *Scheduler) SetPriority(pid process.PID, priority uint8) error {
	if int(priority) >= process.Levels {
		return fmt.Errorf("%w: priority %d", model.ErrInvalidArgument, priority)
	}
	p, err := s.live(pid)
	if err != nil {
		return err
	}
	if p.State == process.Ready && p.Priority != priority {
		h := s.index[pid]
		s.mustDetach(s.ready[p.Priority], h)
		s.must(s.ready[priority].AppendHandle(h))
	}
	p.Priority = priority
	return nil
}

// Schedule saves prev into the running process, requeues it if it is still
// running and returns the context of the next process to run.
func (s *Scheduler) Schedule(prev process.StackPointer) process.StackPointer {
	var outgoing *process.Process
	if s.current != process.NoPID {
		outgoing = s.procs[s.current]
	}
	if outgoing != nil {
		outgoing.StackPointer = prev
		if outgoing.State == process.Running {
			if s.expired && outgoing.Priority > 0 {
				outgoing.Priority--
			}
			outgoing.State = process.Ready
			s.must(s.ready[outgoing.Priority].AppendHandle(s.index[outgoing.PID]))
		}
	}
	s.expired = false

	if outgoing != nil && outgoing.State != process.Zombie && outgoing.Foreground() && s.killForeground.CompareAndSwap(true, false) {
		if s.onForegroundKill != nil {
			if err := s.onForegroundKill(outgoing.PID); err != nil {
				s.logger.Info("foreground kill rejected", "pid", outgoing.PID, "error", err)
			}
		}
	}

	s.current = process.NoPID
	for level := process.Levels - 1; level >= 0; level-- {
		h, pid, ok := s.ready[level].PopFront()
		if !ok {
			continue
		}
		next := s.procs[pid]
		if next == nil || s.index[pid] != h {
			panic(fmt.Sprintf("scheduler: corrupted index for pid %d", pid))
		}
		next.State = process.Running
		s.current = pid
		s.remaining = Quantum(next.Priority)
		return next.StackPointer
	}
	s.remaining = 0
	if s.hasIdle {
		return s.idle
	}
	return prev
}

// Tick accounts one timer interrupt and reschedules once the quantum expires.
func (s *Scheduler) Tick(prev process.StackPointer) process.StackPointer {
	switch {
	case s.remaining > 1:
		s.remaining--
		return prev
	case s.remaining == 1:
		s.remaining = 0
		s.expired = true
	}
	return s.Schedule(prev)
}

// YieldNow gives up the rest of the quantum; the next Tick or Schedule switches away.
func (s *Scheduler) YieldNow() {
	s.remaining = 0
	s.expired = false
}

// RequestForegroundKill asks Schedule to terminate the next outgoing process
// that owns the console input. Safe for concurrent use.
func (s *Scheduler) RequestForegroundKill() {
	s.killForeground.Store(true)
}

// KillPending reports an unconsumed foreground kill request.
func (s *Scheduler) KillPending() bool {
	return s.killForeground.Load()
}

// OnForegroundKill sets the handler used to honour foreground kill requests.
func (s *Scheduler) OnForegroundKill(fn func(pid process.PID) error) {
	s.onForegroundKill = fn
}

// SetIdleContext sets the context returned when nothing is runnable.
func (s *Scheduler) SetIdleContext(sp process.StackPointer) {
	s.idle = sp
	s.hasIdle = true
}

// Current returns the running pid or NoPID.
func (s *Scheduler) Current() process.PID {
	return s.current
}

// Capacity returns the size of the pid space.
func (s *Scheduler) Capacity() int {
	return len(s.procs)
}

// Remaining returns the ticks left in the current quantum.
func (s *Scheduler) Remaining() uint32 {
	return s.remaining
}

// Lookup returns the live record of pid.
func (s *Scheduler) Lookup(pid process.PID) (*process.Process, bool) {
	if int(pid) >= len(s.procs) {
		return nil, false
	}
	p := s.procs[pid]
	return p, p != nil
}

// Resolve returns the record of ref when that incarnation is still indexed.
func (s *Scheduler) Resolve(ref process.Ref) (*process.Process, bool) {
	p, ok := s.Lookup(ref.PID)
	if !ok || p.Serial != ref.Serial {
		return nil, false
	}
	return p, true
}

// Alive reports whether ref names an indexed, non-zombie process.
func (s *Scheduler) Alive(ref process.Ref) bool {
	p, ok := s.Resolve(ref)
	return ok && p.State != process.Zombie
}

// ReadyCount returns the number of Ready processes.
func (s *Scheduler) ReadyCount() int {
	ret := 0
	for _, level := range s.ready {
		ret += level.Len()
	}
	return ret
}

// Processes iterates indexed processes by ascending pid.
func (s *Scheduler) Processes() iter.Seq[*process.Process] {
	return func(yield func(*process.Process) bool) {
		for _, p := range s.procs {
			if p == nil {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// NewList creates a list sharing the process node pool, used for zombie children.
func (s *Scheduler) NewList() *queue.List[process.PID] {
	return s.nodes.NewList()
}

// Holder returns the list currently holding the node of pid, nil while Running.
func (s *Scheduler) Holder(pid process.PID) *queue.List[process.PID] {
	if int(pid) >= len(s.index) || s.procs[pid] == nil {
		return nil
	}
	return s.nodes.Owner(s.index[pid])
}

// Unlink removes a Ready or Blocked process from its queue ahead of termination.
func (s *Scheduler) Unlink(pid process.PID) error {
	p, err := s.live(pid)
	if err != nil {
		return err
	}
	switch p.State {
	case process.Ready:
		s.mustDetach(s.ready[p.Priority], s.index[pid])
	case process.Blocked:
		s.mustDetach(s.blocked, s.index[pid])
	}
	return nil
}

// Adopt links the node of a zombie into list.
func (s *Scheduler) Adopt(list *queue.List[process.PID], pid process.PID) error {
	p, ok := s.Lookup(pid)
	if !ok {
		return fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	if p.State != process.Zombie {
		return fmt.Errorf("%w: pid %d is %v", model.ErrInvalidArgument, pid, p.State)
	}
	return list.AppendHandle(s.index[pid])
}

// Reap detaches the node of pid from list.
func (s *Scheduler) Reap(list *queue.List[process.PID], pid process.PID) error {
	if _, ok := s.Lookup(pid); !ok {
		return fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	_, err := list.Detach(s.index[pid])
	return err
}

// Remove drops pid from the index and releases its node.
func (s *Scheduler) Remove(pid process.PID) {
	if _, ok := s.Lookup(pid); !ok {
		return
	}
	h := s.index[pid]
	if owner := s.nodes.Owner(h); owner != nil {
		s.mustDetach(owner, h)
	}
	s.must(s.nodes.Release(h))
	s.procs[pid] = nil
	s.index[pid] = queue.NoHandle
	if s.current == pid {
		s.current = process.NoPID
		s.remaining = 0
	}
}

func (s *Scheduler) live(pid process.PID) (*process.Process, error) {
	p, ok := s.Lookup(pid)
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	if p.State == process.Zombie {
		return nil, fmt.Errorf("%w: pid %d is a zombie", model.ErrInvalidArgument, pid)
	}
	return p, nil
}

func (s *Scheduler) mustDetach(list *queue.List[process.PID], h queue.Handle) {
	if _, err := list.Detach(h); err != nil {
		panic(fmt.Sprintf("scheduler: corrupted queue: %v", err))
	}
}

func (s *Scheduler) must(err error) {
	if err != nil {
		panic(fmt.Sprintf("scheduler: corrupted queue: %v", err))
	}
}

// New creates a scheduler.
func New(config Config, opts ...Option) *Scheduler {
	if config.MaxProcesses <= 0 {
		config = DefaultConfig()
	}
	ret := &Scheduler{
		config: config,
		procs:  make([]*process.Process, config.MaxProcesses),
		index:  make([]queue.Handle, config.MaxProcesses),
		nodes:  queue.NewPool[process.PID](config.MaxProcesses),
		logger: slog.Default(),
	}
	for i := range ret.index {
		ret.index[i] = queue.NoHandle
	}
	for i := range ret.ready {
		ret.ready[i] = ret.nodes.NewList()
	}
	ret.blocked = ret.nodes.NewList()
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
