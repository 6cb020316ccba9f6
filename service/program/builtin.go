// Package program holds the user programs shipped with the kernel: process
// and memory inspection, process control, the scheduling and synchronisation
// exercisers, and sh, the shell that runs boot scripts and console input.
package program

import (
	"strings"

	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
)

// DefaultPriority is the priority the shell starts commands with.
const DefaultPriority = process.MaxPriority

// Builtins returns every program by name.
func Builtins() map[string]kernel.Program {
	return map[string]kernel.Program{
		"sh":             Shell,
		"help":           Help,
		"echo":           Echo,
		"ps":             PS,
		"mem":            Mem,
		"kill":           Kill,
		"nice":           Nice,
		"block":          Block,
		"unblock":        Unblock,
		"loop":           Loop,
		"endless_loop":   EndlessLoop,
		"zero_to_max":    ZeroToMax,
		"test_prio":      PrioTest,
		"test_processes": ProcessesTest,
		"test_sync":      SyncTest,
		"mvar":           MVar,
	}
}

// Help lists the registered programs.
func Help(ctx *kernel.Context, argv []string) int32 {
	ctx.Printf("programs: %s\n", strings.Join(ctx.Programs(), " "))
	ctx.Printf("shell builtins: exit [status], wait, jobs\n")
	return 0
}

// Echo prints its arguments.
func Echo(ctx *kernel.Context, argv []string) int32 {
	ctx.Printf("%s\n", strings.Join(argv, " "))
	return 0
}
