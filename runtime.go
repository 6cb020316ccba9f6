package kcore

import (
	"context"

	"github.com/viant/kcore/runtime/kernel"
)

// Runtime is the host side of a kernel: console input, the interrupt key and
// shutdown. Its methods are safe for concurrent use with Boot.
type Runtime struct {
	kernel *kernel.Kernel
}

// Feed queues one console input line, waiting while the input buffer is full.
func (r *Runtime) Feed(ctx context.Context, line string) error {
	return r.kernel.Feed(ctx, line)
}

// CloseInput signals end of console input.
func (r *Runtime) CloseInput() {
	r.kernel.CloseInput()
}

// Interrupt kills the process owning the console unless it is unkillable.
func (r *Runtime) Interrupt() {
	r.kernel.RequestForegroundKill()
}

// Stop makes Boot return at the next interrupt.
func (r *Runtime) Stop() {
	r.kernel.Stop()
}

// BootID returns the id of the booted kernel.
func (r *Runtime) BootID() string {
	return r.kernel.BootID()
}

// Ticks returns the timer interrupts raised since boot.
func (r *Runtime) Ticks() uint64 {
	return r.kernel.Ticks()
}

// Kernel exposes the underlying kernel.
func (r *Runtime) Kernel() *kernel.Kernel {
	return r.kernel
}
