package program

import (
	"math/rand/v2"

	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
)

const (
	mvarEmpty = 3700
	mvarFull  = 3701
	mvarPrint = 3702

	mvarPriority   = 2
	mvarMaxWriters = 26
	minDelaySpins  = 15000
	randDelaySpins = 60000
)

var readerColors = []string{
	"\x1b[31m", "\x1b[32m", "\x1b[33m", "\x1b[34m", "\x1b[35m", "\x1b[36m", "\x1b[37m",
	"\x1b[90m", "\x1b[91m", "\x1b[92m", "\x1b[93m", "\x1b[94m", "\x1b[95m", "\x1b[96m", "\x1b[97m",
}

// MVar launches writers and readers sharing a one slot variable guarded by
// semaphores. Usage: mvar [writers] [readers].
func MVar(ctx *kernel.Context, argv []string) int32 {
	if len(argv) != 0 && len(argv) != 2 {
		ctx.Eprintf("mvar: usage mvar [writers] [readers]\n")
		return 1
	}
	writers, err := intArg(argv, 0, 5)
	if err != nil || writers <= 0 || writers > mvarMaxWriters {
		ctx.Eprintf("mvar: writers must be between 1 and %d\n", mvarMaxWriters)
		return 1
	}
	readers, err := intArg(argv, 1, 2)
	if err != nil || readers <= 0 || readers > len(readerColors) {
		ctx.Eprintf("mvar: readers must be between 1 and %d\n", len(readerColors))
		return 1
	}
	for _, id := range []int{mvarEmpty, mvarFull, mvarPrint} {
		_ = ctx.SemDestroy(id)
	}
	for id, value := range map[int]uint32{mvarEmpty: 1, mvarFull: 0, mvarPrint: 1} {
		if err = ctx.SemInit(id, value); err != nil {
			ctx.Eprintf("mvar: %v\n", err)
			return 1
		}
	}

	var slot byte
	writer := func(ctx *kernel.Context, argv []string) int32 {
		value := argv[0][0]
		for {
			randomDelay(ctx)
			_ = ctx.SemWait(mvarEmpty)
			slot = value
			_ = ctx.SemPost(mvarFull)
		}
	}
	reader := func(ctx *kernel.Context, argv []string) int32 {
		color := argv[0]
		for {
			randomDelay(ctx)
			_ = ctx.SemWait(mvarFull)
			value := slot
			slot = 0
			_ = ctx.SemPost(mvarEmpty)
			_ = ctx.SemWait(mvarPrint)
			ctx.Printf("%s%c\x1b[0m", color, value)
			_ = ctx.SemPost(mvarPrint)
			ctx.Yield()
		}
	}

	var launched []kernel.Spawn
	for i := 0; i < writers; i++ {
		launched = append(launched, kernel.Spawn{Name: "mvar-writer", Program: writer, Args: []string{string(rune('A' + i))}, Priority: mvarPriority})
	}
	for i := 0; i < readers; i++ {
		launched = append(launched, kernel.Spawn{Name: "mvar-reader", Program: reader, Args: []string{readerColors[i]}, Priority: mvarPriority})
	}
	var pids []process.PID
	for _, spawn := range launched {
		pid, err := ctx.CreateProcess(spawn)
		if err != nil {
			for _, started := range pids {
				_ = ctx.Kill(started)
			}
			ctx.Eprintf("mvar: aborting launch: %v\n", err)
			return 1
		}
		pids = append(pids, pid)
	}
	ctx.Printf("[mvar] launched %d writers and %d readers; use ps, nice and kill to control them\n", writers, readers)
	return 0
}

func randomDelay(ctx *kernel.Context) {
	spin(ctx, minDelaySpins+rand.IntN(randDelaySpins))
}
