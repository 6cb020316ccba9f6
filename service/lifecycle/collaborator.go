package lifecycle

import (
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/pipe"
)

// Allocator provides the memory backing process records.
type Allocator interface {
	Alloc(size int) (process.Address, bool)
	Free(addr process.Address)
}

// Machine builds and discards execution contexts.
type Machine interface {
	MakeInitialContext(entry func(), stackTop process.Address) process.StackPointer
	Release(sp process.StackPointer)
}

// Pipes attaches processes to pipe endpoints.
type Pipes interface {
	Open(pid process.PID, fd process.FD, mode pipe.Mode) error
	Close(pid process.PID, fd process.FD, mode pipe.Mode)
}

// Yielder gives up the processor until the scheduler picks the caller again.
type Yielder interface {
	Yield()
}

// Entry is the body of a process; its result becomes the exit status.
type Entry func(argv []string) int32
