package kernel

import (
	"fmt"

	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/lifecycle"
	"github.com/viant/kcore/service/memory"
)

var errNotRunning = fmt.Errorf("%w: caller does not hold the processor", model.ErrProtocolViolation)

// Context is the system call surface handed to a running program. Calls
// made by a context that no longer holds the processor (deferred code of a
// killed process) do nothing and report ErrProtocolViolation.
type Context struct {
	kernel *Kernel
	pid    process.PID
	serial uint64
	sp     process.StackPointer
}

func (c *Context) active() bool {
	m := c.kernel.machine
	return m.Current() == c.sp && !m.Released(c.sp)
}

// enter is the preemption point every system call starts with.
func (c *Context) enter() bool {
	if !c.active() {
		return false
	}
	c.kernel.service()
	return true
}

func (c *Context) self() (*process.Process, bool) {
	return c.kernel.scheduler.Resolve(process.Ref{PID: c.pid, Serial: c.serial})
}

// settle gives up the processor when the caller is no longer runnable.
func (c *Context) settle() {
	if p, ok := c.self(); ok && p.State == process.Running {
		return
	}
	c.kernel.reschedule()
}

// GetPID returns the pid of the caller.
func (c *Context) GetPID() process.PID {
	return c.pid
}

// CreateProcess starts a child of the caller.
func (c *Context) CreateProcess(spawn Spawn) (process.PID, error) {
	if !c.enter() {
		return process.NoPID, errNotRunning
	}
	return c.kernel.spawn(spawn)
}

// HasProgram reports whether a program is registered under name.
func (c *Context) HasProgram(name string) bool {
	_, ok := c.kernel.programs[name]
	return ok
}

// Programs lists registered program names.
func (c *Context) Programs() []string {
	return c.kernel.Programs()
}

// Nice sets the priority of pid.
func (c *Context) Nice(pid process.PID, priority uint8) error {
	if !c.enter() {
		return errNotRunning
	}
	if err := c.kernel.scheduler.SetPriority(pid, priority); err != nil {
		return err
	}
	c.kernel.changed(process.ChangePriority, pid)
	return nil
}

// Block moves pid to the blocked queue; blocking the caller yields.
func (c *Context) Block(pid process.PID) error {
	if !c.enter() {
		return errNotRunning
	}
	if err := c.kernel.scheduler.SetStatus(pid, process.Blocked); err != nil {
		return err
	}
	c.kernel.changed(process.ChangeState, pid)
	if pid == c.pid {
		c.settle()
	}
	return nil
}

// Unblock makes a blocked pid ready at the highest priority.
func (c *Context) Unblock(pid process.PID) error {
	if !c.enter() {
		return errNotRunning
	}
	if err := c.kernel.scheduler.SetStatus(pid, process.Ready); err != nil {
		return err
	}
	c.kernel.changed(process.ChangeState, pid)
	return nil
}

// State returns the state of pid.
func (c *Context) State(pid process.PID) (process.State, error) {
	if !c.enter() {
		return 0, errNotRunning
	}
	p, ok := c.kernel.scheduler.Lookup(pid)
	if !ok {
		return 0, fmt.Errorf("%w: pid %d", model.ErrNotFound, pid)
	}
	return p.State, nil
}

// Kill terminates pid; killing the caller does not return.
func (c *Context) Kill(pid process.PID) error {
	if !c.enter() {
		return errNotRunning
	}
	if err := c.kernel.processes.Terminate(pid, lifecycle.KilledStatus); err != nil {
		return err
	}
	c.settle()
	return nil
}

// Exit terminates the caller with status; it does not return.
func (c *Context) Exit(status int32) error {
	if !c.enter() {
		return errNotRunning
	}
	if err := c.kernel.processes.Exit(status); err != nil {
		return err
	}
	c.settle()
	return nil
}

// Wait blocks until the child pid exits and returns its status.
func (c *Context) Wait(pid process.PID) (int32, error) {
	if !c.enter() {
		return 0, errNotRunning
	}
	return c.kernel.processes.Wait(pid)
}

// Yield gives up the rest of the quantum.
func (c *Context) Yield() {
	if !c.active() {
		return
	}
	c.kernel.Yield()
}

// Snapshot lists every process, zombies included.
func (c *Context) Snapshot() []process.Info {
	if !c.enter() {
		return nil
	}
	return c.kernel.processes.Snapshot()
}

// MemoryState reports allocator usage.
func (c *Context) MemoryState() memory.Stats {
	if !c.enter() {
		return memory.Stats{}
	}
	return c.kernel.memory.State()
}

// SemInit creates semaphore id with an initial value; the caller holds it open.
func (c *Context) SemInit(id int, value uint32) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Init(id, value)
}

// SemOpen attaches the caller to an existing semaphore.
func (c *Context) SemOpen(id int) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Open(id)
}

// SemClose detaches the caller; the last close of an idle semaphore frees it.
func (c *Context) SemClose(id int) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Close(id)
}

// SemDestroy frees semaphore id unless processes are still waiting on it.
func (c *Context) SemDestroy(id int) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Destroy(id)
}

// SemWait decrements semaphore id, blocking the caller while its value is zero.
func (c *Context) SemWait(id int) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Wait(id)
}

// SemPost increments semaphore id, wakes one waiter and yields.
func (c *Context) SemPost(id int) error {
	if !c.enter() {
		return errNotRunning
	}
	return c.kernel.semaphores.Post(id)
}

// Pipe allocates a pipe descriptor for the caller's children.
func (c *Context) Pipe() (process.FD, error) {
	if !c.enter() {
		return process.DevNull, errNotRunning
	}
	return c.kernel.pipes.Create()
}

// Printf writes to the caller's standard output.
func (c *Context) Printf(format string, args ...interface{}) {
	c.print(process.Stdout, format, args...)
}

// Eprintf writes to the caller's standard error.
func (c *Context) Eprintf(format string, args ...interface{}) {
	c.print(process.Stderr, format, args...)
}

func (c *Context) print(slot process.FD, format string, args ...interface{}) {
	if !c.enter() {
		return
	}
	p, ok := c.self()
	if !ok {
		return
	}
	c.kernel.write(p.FileDescriptors[slot], fmt.Sprintf(format, args...))
}

// Foreground reports whether the caller owns the console input.
func (c *Context) Foreground() bool {
	p, ok := c.self()
	return ok && p.Foreground()
}

// ReadLine returns the next console line, halting until one is available.
// It reports false at end of input or when the caller does not own the console.
func (c *Context) ReadLine() (string, bool) {
	for c.enter() {
		if !c.Foreground() {
			return "", false
		}
		select {
		case line, ok := <-c.kernel.input:
			return line, ok
		default:
		}
		c.Halt()
	}
	return "", false
}

// Checkpoint is an explicit preemption point for compute loops.
func (c *Context) Checkpoint() {
	c.enter()
}

// Halt gives the processor away, or waits for an interrupt when nothing else is ready.
func (c *Context) Halt() {
	if !c.active() {
		return
	}
	k := c.kernel
	if k.stopping || k.scheduler.ReadyCount() > 0 {
		k.Yield()
		return
	}
	k.machine.WaitInterrupt()
	k.service()
}

// Ticks returns the timer interrupts raised since boot.
func (c *Context) Ticks() uint64 {
	return c.kernel.machine.Ticks()
}

// Sleep halts the caller for at least ticks timer interrupts.
func (c *Context) Sleep(ticks uint64) {
	target := c.kernel.machine.Ticks() + ticks
	for c.active() && c.kernel.machine.Ticks() < target {
		c.Halt()
	}
}
