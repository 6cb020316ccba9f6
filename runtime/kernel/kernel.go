// Package kernel runs processes on the simulated processor. The Kernel is the
// single kernel execution context: it owns the allocator, machine, scheduler,
// process lifecycle, semaphores and pipes, bridges timer interrupts into the
// scheduler and hands every process a Context exposing the system calls.
package kernel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/viant/kcore/internal/idgen"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/cpu"
	"github.com/viant/kcore/service/event"
	"github.com/viant/kcore/service/lifecycle"
	"github.com/viant/kcore/service/memory"
	"github.com/viant/kcore/service/pipe"
	"github.com/viant/kcore/service/scheduler"
	"github.com/viant/kcore/service/semaphore"
	"github.com/viant/kcore/tracing"
)

// IdleName names the process that runs when nothing else is ready.
const IdleName = "idle"

// Kernel owns every subsystem. Apart from Stop, RequestForegroundKill, Feed
// and CloseInput, its state is only touched by the context holding the processor.
type Kernel struct {
	config     Config
	machine    *cpu.Machine
	memory     *memory.Allocator
	scheduler  *scheduler.Scheduler
	processes  *lifecycle.Manager
	semaphores *semaphore.Table
	pipes      *pipe.Registry
	events     *event.Service
	publisher  *event.Publisher[process.Change]
	programs   map[string]Program

	input     chan string
	inputOnce sync.Once
	console   io.Writer
	consoleMu sync.Mutex

	ctx      context.Context
	bootID   string
	started  bool
	stopping bool
	initPID  process.PID
	initDone bool
	exitCode int32
	logger   *slog.Logger
}

// Run boots the idle process and init, then runs processes until init exits
// or ctx is cancelled. It returns the exit status of init. A kernel runs once.
func (k *Kernel) Run(ctx context.Context, init Spawn) (ret int32, err error) {
	if k.started {
		return 0, fmt.Errorf("%w: kernel already ran", model.ErrProtocolViolation)
	}
	k.started = true
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, span := tracing.Start(k.ctx, "kernel.run")
	span.Set("kernel.boot_id", k.bootID).Set("kernel.init", init.Name)
	defer func() { span.SetInt("kernel.exit_code", int(ret)).End(err) }()

	k.scheduler.SetIdleContext(cpu.BootContext)
	if _, err = k.spawn(Spawn{
		Name:            IdleName,
		Program:         idle,
		FileDescriptors: []process.FD{process.DevNull, process.Stdout, process.Stderr},
		Unkillable:      true,
	}); err != nil {
		return 0, fmt.Errorf("failed to create idle process: %w", err)
	}
	if k.initPID, err = k.spawn(init); err != nil {
		k.machine.Shutdown()
		k.teardown()
		return 0, fmt.Errorf("failed to create init process: %w", err)
	}
	k.logger.Info("kernel booted", "boot_id", k.bootID, "init", init.Name, "pid", k.initPID)
	k.machine.StartTimer(ctx, k.config.TickInterval)

	k.reschedule()
	for !k.stopping {
		switch {
		case k.machine.StopRequested():
			k.stopping = true
		case k.scheduler.ReadyCount() > 0:
			k.reschedule()
		case k.machine.WaitInterrupt():
			k.service()
		}
	}
	k.machine.Shutdown()
	k.teardown()
	if !k.initDone {
		k.logger.Info("kernel stopped before init exited", "boot_id", k.bootID)
		return lifecycle.KilledStatus, fmt.Errorf("kernel stopped before init exited: %w", context.Cause(ctx))
	}
	k.logger.Info("kernel halted", "boot_id", k.bootID, "exit_code", k.exitCode)
	return k.exitCode, nil
}

// Yield gives up the processor for the rest of the quantum.
func (k *Kernel) Yield() {
	k.scheduler.YieldNow()
	k.reschedule()
}

// reschedule hands the processor to the next process, or back to the boot
// context once the kernel is stopping.
func (k *Kernel) reschedule() {
	prev := k.machine.Current()
	next := k.scheduler.Schedule(prev)
	if k.stopping {
		next = cpu.BootContext
	}
	k.machine.Switch(next)
}

// service runs the interrupt bridge: every pending timer interrupt is a tick,
// and a tick that ends the quantum switches away. A pending foreground kill
// switches away from a foreground process so Schedule can honour it.
func (k *Kernel) service() {
	if !k.stopping && k.machine.StopRequested() {
		k.stopping = true
	}
	if k.stopping {
		if k.machine.Current() != cpu.BootContext {
			k.reschedule()
		}
		return
	}
	pending := k.machine.TakeInterrupts()
	for i := 0; i < pending; i++ {
		prev := k.machine.Current()
		if next := k.scheduler.Tick(prev); next != prev {
			k.machine.Switch(next)
			return
		}
	}
	if k.scheduler.KillPending() {
		if p, ok := k.scheduler.Lookup(k.scheduler.Current()); ok && p.Foreground() {
			k.Yield()
		}
	}
}

// Stop asks the kernel to shut down at the next preemption point. Safe for concurrent use.
func (k *Kernel) Stop() {
	k.machine.Stop()
}

// RequestForegroundKill kills the process owning the console at the next
// reschedule. Safe for concurrent use.
func (k *Kernel) RequestForegroundKill() {
	k.scheduler.RequestForegroundKill()
	k.machine.Wake()
}

// Feed queues a console input line. Safe for concurrent use.
func (k *Kernel) Feed(ctx context.Context, line string) error {
	select {
	case k.input <- line:
		k.machine.Wake()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseInput signals end of console input. Safe for concurrent use.
func (k *Kernel) CloseInput() {
	k.inputOnce.Do(func() {
		close(k.input)
		k.machine.Wake()
	})
}

// BootID returns the id of this kernel instance.
func (k *Kernel) BootID() string {
	return k.bootID
}

// Ticks returns the timer interrupts raised since boot.
func (k *Kernel) Ticks() uint64 {
	return k.machine.Ticks()
}

func (k *Kernel) write(fd process.FD, text string) {
	if fd < 0 || fd >= process.BuiltinDescriptors {
		return
	}
	k.consoleMu.Lock()
	defer k.consoleMu.Unlock()
	if _, err := io.WriteString(k.console, text); err != nil {
		k.logger.Warn("console write failed", "error", err)
	}
}

// teardown destroys the processes left when the kernel stops.
func (k *Kernel) teardown() {
	var pids []process.PID
	for p := range k.scheduler.Processes() {
		pids = append(pids, p.PID)
	}
	for _, pid := range pids {
		if _, ok := k.scheduler.Lookup(pid); ok {
			_ = k.processes.Destroy(pid)
		}
	}
}

func (k *Kernel) changed(kind process.ChangeType, pid process.PID) {
	p, ok := k.scheduler.Lookup(pid)
	if !ok {
		return
	}
	k.onChange(process.Change{
		Type:     kind,
		PID:      p.PID,
		Parent:   p.ParentPID,
		Name:     p.Name,
		State:    p.State,
		Priority: p.Priority,
		RetValue: p.RetValue,
	})
}

func (k *Kernel) onChange(change process.Change) {
	if change.Type == process.ChangeTerminated && change.PID == k.initPID && k.initPID != process.NoPID && !k.initDone {
		k.initDone = true
		k.exitCode = change.RetValue
		k.stopping = true
	}
	if k.publisher == nil {
		return
	}
	evt := event.NewEvent(&event.Context{
		BootID:    k.bootID,
		PID:       uint16(change.PID),
		EventType: string(change.Type),
		Source:    "lifecycle",
	}, change)
	if err := k.publisher.Publish(k.ctx, evt); err != nil {
		k.logger.Debug("lifecycle event dropped", "pid", change.PID, "type", change.Type, "error", err)
	}
}

// idle halts until an interrupt arrives whenever nothing else is ready.
func idle(ctx *Context, _ []string) int32 {
	for {
		ctx.Halt()
	}
}

// New creates a kernel; config must be valid.
func New(config Config, opts ...Option) *Kernel {
	ret := &Kernel{
		config:   config,
		programs: map[string]Program{},
		console:  os.Stdout,
		ctx:      context.Background(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.bootID == "" {
		ret.bootID = idgen.New()
	}
	ret.input = make(chan string, config.InputBuffer)
	ret.machine = cpu.New(cpu.WithLogger(ret.logger))
	ret.memory = memory.New(config.Memory, memory.WithLogger(ret.logger))
	ret.scheduler = scheduler.New(config.Scheduler, scheduler.WithLogger(ret.logger))
	ret.pipes = pipe.New(config.MaxPipes, pipe.WithLogger(ret.logger))
	ret.processes = lifecycle.New(config.Lifecycle, ret.scheduler, ret.memory, ret.machine,
		lifecycle.WithLogger(ret.logger),
		lifecycle.WithPipes(ret.pipes),
		lifecycle.WithYielder(ret),
		lifecycle.WithListener(ret.onChange),
		lifecycle.WithContext(ret.ctx),
	)
	ret.semaphores = semaphore.New(config.Semaphore, ret.scheduler, ret,
		semaphore.WithLogger(ret.logger),
		semaphore.WithAllocator(ret.memory),
	)
	if ret.events != nil {
		ret.publisher = event.PublisherOf[process.Change](ret.events)
	}
	return ret
}
