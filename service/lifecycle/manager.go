// Package lifecycle creates and tears down processes: allocation with
// rollback, the trampoline every process starts in, termination into the
// zombie state, reaping through wait and the pid reuse pool.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viant/kcore/internal/clock"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/pipe"
	"github.com/viant/kcore/service/scheduler"
	"github.com/viant/kcore/tracing"
)

// pcbSize is the allocation reserved for a process control block.
const pcbSize = 256

// KilledStatus is the exit status of a process killed from the console.
const KilledStatus int32 = -1

// Spec describes a process to create. The creating (current) process becomes its parent.
type Spec struct {
	Entry    Entry
	Args     []string
	Name     string
	Priority uint8
	// FileDescriptors holds stdin, stdout, stderr; empty means the console.
	FileDescriptors []process.FD
	Unkillable      bool
}

// Manager owns process creation, termination and reaping.
type Manager struct {
	config    Config
	scheduler *scheduler.Scheduler
	memory    Allocator
	machine   Machine
	pipes     Pipes
	yielder   Yielder
	pids      *pidPool
	contexts  map[process.PID]process.StackPointer
	serial    uint64
	ctx       context.Context
	listener  func(change process.Change)
	logger    *slog.Logger
}

// Create allocates and registers a new process; it is Ready on success. On
// any failure every allocation made for the attempt is undone.
func (m *Manager) Create(spec Spec) (process.PID, error) {
	_, span := tracing.Start(m.ctx, "process.create")
	pid, err := m.create(spec)
	span.Set("process.name", spec.Name).SetInt("process.pid", int(pid)).End(err)
	if err != nil {
		m.logger.Debug("process creation failed", "name", spec.Name, "error", err)
	}
	return pid, err
}

func (m *Manager) create(spec Spec) (ret process.PID, err error) {
	if spec.Entry == nil {
		return process.NoPID, fmt.Errorf("%w: missing entry point", model.ErrInvalidArgument)
	}
	if spec.Name == "" {
		return process.NoPID, fmt.Errorf("%w: missing process name", model.ErrInvalidArgument)
	}
	if spec.Priority > process.MaxPriority {
		return process.NoPID, fmt.Errorf("%w: priority %d", model.ErrInvalidArgument, spec.Priority)
	}
	fds, err := descriptors(spec.FileDescriptors)
	if err != nil {
		return process.NoPID, err
	}
	pid, ok := m.pids.acquire(m.inUse)
	if !ok {
		return process.NoPID, fmt.Errorf("%w: no free pid", model.ErrResourceExhausted)
	}

	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		ret = process.NoPID
	}()
	undo = append(undo, func() { m.pids.release(pid) })

	pcb, err := m.alloc(pcbSize, "process record")
	if err != nil {
		return process.NoPID, err
	}
	undo = append(undo, func() { m.memory.Free(pcb) })
	stack, err := m.alloc(m.config.StackSize(), "stack")
	if err != nil {
		return process.NoPID, err
	}
	undo = append(undo, func() { m.memory.Free(stack) })
	name, err := m.alloc(len(spec.Name)+1, "name")
	if err != nil {
		return process.NoPID, err
	}
	undo = append(undo, func() { m.memory.Free(name) })
	argv := process.PackArgs(spec.Args)
	if argv.Address, err = m.alloc(argv.Size(), "argv"); err != nil {
		return process.NoPID, err
	}
	undo = append(undo, func() { m.memory.Free(argv.Address) })

	p := &process.Process{
		PID:             pid,
		ParentPID:       m.scheduler.Current(),
		Serial:          m.serial + 1,
		Priority:        spec.Priority,
		Name:            spec.Name,
		Argv:            argv,
		StackBase:       stack,
		StackSize:       m.config.StackSize(),
		ZombieChildren:  m.scheduler.NewList(),
		Unkillable:      spec.Unkillable,
		FileDescriptors: fds,
		CreatedAt:       clock.Now(),
		Address:         pcb,
		NameAddress:     name,
	}
	for slot, fd := range fds {
		if fd < process.BuiltinDescriptors {
			continue
		}
		if m.pipes == nil {
			return process.NoPID, fmt.Errorf("%w: descriptor %d without pipe support", model.ErrInvalidArgument, fd)
		}
		mode := modeOf(slot)
		if err = m.pipes.Open(pid, fd, mode); err != nil {
			return process.NoPID, err
		}
		undo = append(undo, func() { m.pipes.Close(pid, fd, mode) })
	}
	sp := m.machine.MakeInitialContext(m.trampoline(p, spec.Entry), p.StackTop())
	undo = append(undo, func() { m.machine.Release(sp) })
	p.StackPointer = sp
	if err = m.scheduler.Register(p); err != nil {
		return process.NoPID, err
	}
	m.serial++
	m.contexts[pid] = sp
	m.logger.Debug("process created", "pid", pid, "name", p.Name, "parent", p.ParentPID, "priority", p.Priority)
	m.notify(process.ChangeCreated, p)
	return pid, nil
}

func (m *Manager) trampoline(p *process.Process, entry Entry) func() {
	return func() {
		ret := entry(p.Argv.Args())
		if err := m.Exit(ret); err != nil {
			m.logger.Error("process exit failed", "pid", p.PID, "error", err)
		}
		for {
			m.yielder.Yield()
		}
	}
}

// Terminate kills pid with status ret. Unkillable and zombie processes are refused.
func (m *Manager) Terminate(pid process.PID, ret int32) error {
	_, span := tracing.StartProcess(m.ctx, "process.terminate", uint16(pid))
	err := m.terminate(pid, ret, false)
	span.End(err)
	return err
}

// Exit terminates the running process with status ret, unkillable or not.
func (m *Manager) Exit(ret int32) error {
	pid := m.scheduler.Current()
	if pid == process.NoPID {
		return fmt.Errorf("%w: exit outside a process", model.ErrProtocolViolation)
	}
	_, span := tracing.StartProcess(m.ctx, "process.exit", uint16(pid))
	err := m.terminate(pid, ret, true)
	span.End(err)
	return err
}

func (m *Manager) terminate(pid process.PID, ret int32, self bool) error {
	p, ok := m.scheduler.Lookup(pid)
	if !ok {
		return fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	if p.State == process.Zombie {
		return fmt.Errorf("%w: pid %d is already a zombie", model.ErrPermissionDenied, pid)
	}
	if p.Unkillable && !self {
		return fmt.Errorf("%w: pid %d is unkillable", model.ErrPermissionDenied, pid)
	}
	running := pid == m.scheduler.Current()
	if err := m.scheduler.Unlink(pid); err != nil {
		return err
	}
	m.closeDescriptors(p)
	p.State = process.Zombie
	p.RetValue = ret
	p.WaitingFor = process.NoPID

	for {
		_, child, ok := p.ZombieChildren.PopFront()
		if !ok {
			break
		}
		if zombie, ok := m.scheduler.Lookup(child); ok {
			m.destroy(zombie)
		}
	}
	m.orphan(pid)
	m.notify(process.ChangeTerminated, p)

	parent, ok := m.scheduler.Lookup(p.ParentPID)
	if ok && parent.State != process.Zombie {
		if err := m.scheduler.Adopt(parent.ZombieChildren, pid); err != nil {
			panic(fmt.Sprintf("lifecycle: cannot queue zombie %d under %d: %v", pid, parent.PID, err))
		}
		if parent.State == process.Blocked && parent.WaitingFor == pid {
			if err := m.scheduler.SetStatus(parent.PID, process.Ready); err != nil {
				return err
			}
		}
	} else {
		m.destroy(p)
	}
	if running {
		m.scheduler.YieldNow()
	}
	m.logger.Debug("process terminated", "pid", pid, "ret", ret)
	return nil
}

// Wait reaps the child pid of the running process and returns its exit
// status, blocking until the child terminates.
func (m *Manager) Wait(pid process.PID) (int32, error) {
	_, span := tracing.StartProcess(m.ctx, "process.wait", uint16(pid))
	ret, err := m.wait(pid)
	span.End(err)
	return ret, err
}

func (m *Manager) wait(pid process.PID) (int32, error) {
	callerPID := m.scheduler.Current()
	caller, ok := m.scheduler.Lookup(callerPID)
	if !ok {
		return 0, fmt.Errorf("%w: wait outside a process", model.ErrProtocolViolation)
	}
	child, ok := m.scheduler.Lookup(pid)
	if !ok {
		return 0, fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	if child.ParentPID != callerPID || pid == callerPID {
		return 0, fmt.Errorf("%w: pid %d is not a child of %d", model.ErrPermissionDenied, pid, callerPID)
	}
	ref := child.Ref()
	for child.State != process.Zombie {
		caller.WaitingFor = pid
		if err := m.scheduler.SetStatus(callerPID, process.Blocked); err != nil {
			caller.WaitingFor = process.NoPID
			return 0, err
		}
		m.yielder.Yield()
		caller.WaitingFor = process.NoPID
		if child, ok = m.scheduler.Resolve(ref); !ok {
			return 0, fmt.Errorf("%w: child %d vanished while %d was waiting", model.ErrProtocolViolation, pid, callerPID)
		}
	}
	if err := m.scheduler.Reap(caller.ZombieChildren, pid); err != nil {
		return 0, fmt.Errorf("%w: zombie %d not queued under %d: %v", model.ErrProtocolViolation, pid, callerPID, err)
	}
	ret := child.RetValue
	m.destroy(child)
	return ret, nil
}

// Destroy releases pid whatever its state, along with its queued zombies.
func (m *Manager) Destroy(pid process.PID) error {
	p, ok := m.scheduler.Lookup(pid)
	if !ok {
		return fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	if p.State != process.Zombie {
		m.closeDescriptors(p)
		m.orphan(pid)
	}
	m.destroy(p)
	return nil
}

// orphan detaches the live children of pid; they are destroyed as soon as they exit.
func (m *Manager) orphan(pid process.PID) {
	for child := range m.scheduler.Processes() {
		if child.ParentPID == pid {
			child.ParentPID = process.NoPID
		}
	}
}

func (m *Manager) destroy(p *process.Process) {
	_, span := tracing.StartProcess(m.ctx, "process.destroy", uint16(p.PID))
	defer span.End(nil)
	m.scheduler.Remove(p.PID)
	for {
		_, child, ok := p.ZombieChildren.PopFront()
		if !ok {
			break
		}
		if zombie, ok := m.scheduler.Lookup(child); ok {
			m.destroy(zombie)
		}
	}
	if sp, ok := m.contexts[p.PID]; ok {
		m.machine.Release(sp)
		delete(m.contexts, p.PID)
	}
	m.memory.Free(p.Argv.Address)
	m.memory.Free(p.NameAddress)
	m.memory.Free(p.StackBase)
	m.memory.Free(p.Address)
	p.State = process.Dead
	m.pids.release(p.PID)
	m.logger.Debug("process destroyed", "pid", p.PID)
	m.notify(process.ChangeDestroyed, p)
}

// Get returns the live record of pid.
func (m *Manager) Get(pid process.PID) (*process.Process, bool) {
	return m.scheduler.Lookup(pid)
}

// Snapshot returns one row per indexed process, zombies included, by ascending pid.
func (m *Manager) Snapshot() []process.Info {
	var ret []process.Info
	for p := range m.scheduler.Processes() {
		ret = append(ret, p.Info())
	}
	return ret
}

func (m *Manager) closeDescriptors(p *process.Process) {
	if m.pipes == nil {
		return
	}
	for slot, fd := range p.FileDescriptors {
		if fd >= process.BuiltinDescriptors {
			m.pipes.Close(p.PID, fd, modeOf(slot))
		}
	}
}

func (m *Manager) alloc(size int, what string) (process.Address, error) {
	addr, ok := m.memory.Alloc(size)
	if !ok {
		return 0, fmt.Errorf("%w: cannot allocate %d bytes for %s", model.ErrResourceExhausted, size, what)
	}
	return addr, nil
}

func (m *Manager) inUse(pid process.PID) bool {
	_, ok := m.scheduler.Lookup(pid)
	return ok
}

func (m *Manager) notify(kind process.ChangeType, p *process.Process) {
	if m.listener == nil {
		return
	}
	m.listener(process.Change{
		Type:     kind,
		PID:      p.PID,
		Parent:   p.ParentPID,
		Name:     p.Name,
		State:    p.State,
		Priority: p.Priority,
		RetValue: p.RetValue,
	})
}

func modeOf(slot int) pipe.Mode {
	if process.FD(slot) == process.Stdin {
		return pipe.Read
	}
	return pipe.Write
}

func descriptors(fds []process.FD) ([process.BuiltinDescriptors]process.FD, error) {
	if len(fds) == 0 {
		return process.DefaultDescriptors(), nil
	}
	var ret [process.BuiltinDescriptors]process.FD
	if len(fds) != process.BuiltinDescriptors {
		return ret, fmt.Errorf("%w: expected %d descriptors, got %d", model.ErrInvalidArgument, process.BuiltinDescriptors, len(fds))
	}
	for i, fd := range fds {
		if fd < process.DevNull {
			return ret, fmt.Errorf("%w: descriptor %d", model.ErrInvalidArgument, fd)
		}
		ret[i] = fd
	}
	return ret, nil
}

// New creates a manager and installs it as the scheduler's foreground killer.
func New(config Config, sched *scheduler.Scheduler, memory Allocator, machine Machine, opts ...Option) *Manager {
	if config.StackPages <= 0 || config.PageSize <= 0 {
		config = DefaultConfig()
	}
	ret := &Manager{
		config:    config,
		scheduler: sched,
		memory:    memory,
		machine:   machine,
		pids:      newPIDPool(config.PIDPoolSize, sched.Capacity()),
		contexts:  map[process.PID]process.StackPointer{},
		ctx:       context.Background(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	sched.OnForegroundKill(func(pid process.PID) error {
		return ret.Terminate(pid, KilledStatus)
	})
	return ret
}
