package semaphore

import "github.com/viant/kcore/model/process"

// Scheduler provides the block and wake primitives semaphores are built on.
type Scheduler interface {
	Current() process.PID
	Lookup(pid process.PID) (*process.Process, bool)
	SetStatus(pid process.PID, state process.State) error
	Alive(ref process.Ref) bool
}

// Yielder gives up the processor until the caller is picked again.
type Yielder interface {
	Yield()
}

// Allocator backs semaphore records.
type Allocator interface {
	Alloc(size int) (process.Address, bool)
	Free(addr process.Address)
}
