// Package cpu simulates the single processor the kernel runs on. Every
// execution context is a goroutine parked on a resume permit; Switch hands the
// permit to the target context and parks the caller, so exactly one context
// executes kernel or process code at any time.
package cpu

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/viant/kcore/model/process"
)

// BootContext is the context of the goroutine that created the machine. The
// kernel uses it as the idle fallback and to regain control on shutdown.
const BootContext process.StackPointer = 0

// initialFrameSize is the room reserved below the stack top by a fresh context.
const initialFrameSize = 0xA0

type frame struct {
	resume   chan struct{}
	released chan struct{}
	once     sync.Once
}

func newFrame() *frame {
	return &frame{resume: make(chan struct{}, 1), released: make(chan struct{})}
}

func (f *frame) await() bool {
	select {
	case <-f.resume:
		return true
	case <-f.released:
		return false
	}
}

func (f *frame) release() {
	f.once.Do(func() { close(f.released) })
}

// Machine owns execution contexts, the current context and the interrupt line.
type Machine struct {
	mu       sync.Mutex
	frames   map[process.StackPointer]*frame
	current  process.StackPointer
	pending  atomic.Int64
	ticks    atomic.Uint64
	irq      chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// MakeInitialContext prepares a context that runs entry on its first resume.
// Nothing runs until the context is switched to.
func (m *Machine) MakeInitialContext(entry func(), stackTop process.Address) process.StackPointer {
	sp := process.StackPointer(uint64(stackTop) - initialFrameSize)
	f := newFrame()
	m.mu.Lock()
	if _, ok := m.frames[sp]; ok {
		m.mu.Unlock()
		panic(fmt.Sprintf("cpu: context %#x already in use", uint64(sp)))
	}
	m.frames[sp] = f
	m.mu.Unlock()
	go func() {
		if !f.await() {
			return
		}
		entry()
	}()
	return sp
}

// Switch transfers the processor to the context to and parks the caller until
// it is switched back. A caller whose context was released never returns.
func (m *Machine) Switch(to process.StackPointer) {
	m.mu.Lock()
	from := m.current
	if from == to {
		m.mu.Unlock()
		return
	}
	target, ok := m.frames[to]
	if !ok {
		m.mu.Unlock()
		panic(fmt.Sprintf("cpu: switch to unknown context %#x", uint64(to)))
	}
	source := m.frames[from]
	m.current = to
	m.mu.Unlock()

	target.resume <- struct{}{}
	if source == nil || !source.await() {
		runtime.Goexit()
	}
}

// Current returns the context holding the processor.
func (m *Machine) Current() process.StackPointer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Release discards a context. Its goroutine exits the next time it would park.
func (m *Machine) Release(sp process.StackPointer) {
	if sp == BootContext {
		return
	}
	m.mu.Lock()
	f, ok := m.frames[sp]
	delete(m.frames, sp)
	m.mu.Unlock()
	if ok {
		f.release()
	}
}

// Released reports whether sp no longer names a live context.
func (m *Machine) Released(sp process.StackPointer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.frames[sp]
	return !ok
}

// Contexts returns the number of live contexts, the boot context included.
func (m *Machine) Contexts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Shutdown releases every context except the boot one.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	var frames []*frame
	for sp, f := range m.frames {
		if sp == BootContext {
			continue
		}
		frames = append(frames, f)
		delete(m.frames, sp)
	}
	m.current = BootContext
	m.mu.Unlock()
	for _, f := range frames {
		f.release()
	}
	m.logger.Debug("machine shut down", "released", len(frames))
}

// New creates a machine whose current context is the caller's goroutine.
func New(opts ...Option) *Machine {
	ret := &Machine{
		frames:  map[process.StackPointer]*frame{BootContext: newFrame()},
		current: BootContext,
		irq:     make(chan struct{}, 1),
		stop:    make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
