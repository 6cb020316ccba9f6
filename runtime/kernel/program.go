package kernel

import (
	"fmt"
	"sort"

	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/lifecycle"
)

// Program is the body of a user process; its result is the exit status.
type Program func(ctx *Context, argv []string) int32

// Spawn describes a process to create.
type Spawn struct {
	Name string
	// Program runs the process; when nil the program registered under Name is used.
	Program         Program
	Args            []string
	Priority        uint8
	FileDescriptors []process.FD
	Unkillable      bool
}

// Register adds or replaces a named program.
func (k *Kernel) Register(name string, program Program) {
	k.programs[name] = program
}

// Programs returns the registered program names in order.
func (k *Kernel) Programs() []string {
	ret := make([]string, 0, len(k.programs))
	for name := range k.programs {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (k *Kernel) spawn(spawn Spawn) (process.PID, error) {
	program := spawn.Program
	if program == nil {
		var ok bool
		if program, ok = k.programs[spawn.Name]; !ok {
			return process.NoPID, fmt.Errorf("%w: program %q", model.ErrNotFound, spawn.Name)
		}
	}
	return k.processes.Create(lifecycle.Spec{
		Entry:           k.entry(program),
		Args:            spawn.Args,
		Name:            spawn.Name,
		Priority:        spawn.Priority,
		FileDescriptors: spawn.FileDescriptors,
		Unkillable:      spawn.Unkillable,
	})
}

// entry binds program to the process it starts in.
func (k *Kernel) entry(program Program) lifecycle.Entry {
	return func(argv []string) int32 {
		ctx := &Context{kernel: k, pid: k.scheduler.Current(), sp: k.machine.Current()}
		if p, ok := k.scheduler.Lookup(ctx.pid); ok {
			ctx.serial = p.Serial
		}
		return program(ctx, argv)
	}
}
