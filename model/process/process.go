package process

import (
	"time"

	"github.com/viant/kcore/internal/queue"
)

// PID identifies a process; NoPID is reserved for "no process".
type PID uint16

// NoPID marks the absence of a process.
const NoPID PID = 0

const (
	// MaxPriority is the most favoured scheduling priority.
	MaxPriority uint8 = 4
	// Levels is the number of ready levels.
	Levels = int(MaxPriority) + 1
)

// FD is a file descriptor slot value.
type FD int16

const (
	Stdin  FD = 0
	Stdout FD = 1
	Stderr FD = 2
	// DevNull discards output and never yields input.
	DevNull FD = -1
	// BuiltinDescriptors is the number of standard slots; values >= it are pipe endpoints.
	BuiltinDescriptors = 3
)

// DefaultDescriptors maps the standard slots onto the console.
func DefaultDescriptors() [BuiltinDescriptors]FD {
	return [BuiltinDescriptors]FD{Stdin, Stdout, Stderr}
}

// Address is an allocator address.
type Address uint64

// StackPointer is an opaque saved execution context.
type StackPointer uint64

// Ref names one incarnation of a process. Serial disambiguates reused PIDs.
type Ref struct {
	PID    PID
	Serial uint64
}

// Process is the process control block.
type Process struct {
	PID             PID
	ParentPID       PID
	Serial          uint64
	Priority        uint8
	State           State
	Name            string
	Argv            *ArgBlock
	StackBase       Address
	StackSize       int
	StackPointer    StackPointer
	ZombieChildren  *queue.List[PID]
	WaitingFor      PID
	RetValue        int32
	Unkillable      bool
	FileDescriptors [BuiltinDescriptors]FD
	CreatedAt       time.Time

	// allocations owned by the record
	Address     Address
	NameAddress Address
}

// Foreground reports whether the process owns the console input.
func (p *Process) Foreground() bool {
	return p.FileDescriptors[Stdin] == Stdin
}

// Ref returns a reference to this incarnation.
func (p *Process) Ref() Ref {
	return Ref{PID: p.PID, Serial: p.Serial}
}

// StackTop returns the highest address of the stack region.
func (p *Process) StackTop() Address {
	return p.StackBase + Address(p.StackSize)
}

// Info returns the ps row of the process.
func (p *Process) Info() Info {
	return Info{
		PID:          p.PID,
		ParentPID:    p.ParentPID,
		Priority:     p.Priority,
		State:        p.State,
		Name:         p.Name,
		StackBase:    p.StackBase,
		StackPointer: p.StackPointer,
		Foreground:   p.Foreground(),
	}
}
