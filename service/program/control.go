package program

import (
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
)

// Kill terminates the process given as first argument.
func Kill(ctx *kernel.Context, argv []string) int32 {
	pid, err := pidArg(argv, 0)
	if err != nil {
		ctx.Eprintf("kill: %v\n", err)
		return 1
	}
	if err = ctx.Kill(pid); err != nil {
		ctx.Eprintf("kill: %v\n", err)
		return 1
	}
	ctx.Printf("killed %d\n", pid)
	return 0
}

// Nice sets the priority of a process; out of range values are clamped.
func Nice(ctx *kernel.Context, argv []string) int32 {
	if len(argv) < 2 {
		ctx.Eprintf("nice: usage nice <pid> <priority 0-%d>\n", process.MaxPriority)
		return 1
	}
	pid, err := pidArg(argv, 0)
	if err != nil {
		ctx.Eprintf("nice: %v\n", err)
		return 1
	}
	priority, err := intArg(argv, 1, 0)
	if err != nil {
		ctx.Eprintf("nice: %v\n", err)
		return 1
	}
	priority = min(max(priority, 0), int(process.MaxPriority))
	if err = ctx.Nice(pid, uint8(priority)); err != nil {
		ctx.Eprintf("nice: %v\n", err)
		return 1
	}
	ctx.Printf("pid %d priority -> %d\n", pid, priority)
	return 0
}

// Block blocks a process, or unblocks it when it is already blocked.
func Block(ctx *kernel.Context, argv []string) int32 {
	pid, err := pidArg(argv, 0)
	if err != nil {
		ctx.Eprintf("block: %v\n", err)
		return 1
	}
	state, err := ctx.State(pid)
	if err != nil {
		ctx.Eprintf("block: %v\n", err)
		return 1
	}
	if state == process.Blocked {
		if err = ctx.Unblock(pid); err != nil {
			ctx.Eprintf("block: %v\n", err)
			return 1
		}
		ctx.Printf("unblocked %d\n", pid)
		return 0
	}
	if err = ctx.Block(pid); err != nil {
		ctx.Eprintf("block: %v\n", err)
		return 1
	}
	ctx.Printf("blocked %d\n", pid)
	return 0
}

// Unblock readies a blocked process.
func Unblock(ctx *kernel.Context, argv []string) int32 {
	pid, err := pidArg(argv, 0)
	if err != nil {
		ctx.Eprintf("unblock: %v\n", err)
		return 1
	}
	if err = ctx.Unblock(pid); err != nil {
		ctx.Eprintf("unblock: %v\n", err)
		return 1
	}
	ctx.Printf("unblocked %d\n", pid)
	return 0
}

// Loop prints a heartbeat every period ticks, forever.
func Loop(ctx *kernel.Context, argv []string) int32 {
	period, err := intArg(argv, 0, 100)
	if err != nil || period <= 0 {
		period = 100
	}
	for {
		ctx.Printf("[loop pid=%d] running\n", ctx.GetPID())
		ctx.Sleep(uint64(period))
		ctx.Yield()
	}
}

// EndlessLoop spins until killed.
func EndlessLoop(ctx *kernel.Context, argv []string) int32 {
	for {
		ctx.Checkpoint()
	}
}
