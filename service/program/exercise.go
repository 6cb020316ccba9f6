package program

import (
	"math/rand/v2"
	"strconv"

	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
)

const (
	checkpointEvery = 1024
	syncSemaphore   = 5
)

// ZeroToMax counts up to its argument and reports completion.
func ZeroToMax(ctx *kernel.Context, argv []string) int32 {
	limit, err := intArg(argv, 0, 1<<20)
	if err != nil {
		ctx.Eprintf("zero_to_max: %v\n", err)
		return 1
	}
	spin(ctx, limit)
	ctx.Printf("PROCESS %d DONE!\n", ctx.GetPID())
	return 0
}

func spin(ctx *kernel.Context, iterations int) {
	for i := 0; i < iterations; i++ {
		if i%checkpointEvery == 0 {
			ctx.Checkpoint()
		}
	}
}

// PrioTest runs zero_to_max processes at equal priority, then with random
// priorities set while ready, then with priorities set while blocked.
// Usage: test_prio [processes] [max].
func PrioTest(ctx *kernel.Context, argv []string) int32 {
	total, err := intArg(argv, 0, 3)
	if err != nil || total <= 0 {
		ctx.Eprintf("test_prio: invalid process count\n")
		return 1
	}
	limit, err := intArg(argv, 1, 200000)
	if err != nil || limit <= 0 {
		ctx.Eprintf("test_prio: invalid max value\n")
		return 1
	}
	priorities := make([]uint8, total)
	for i := range priorities {
		priorities[i] = uint8(rand.IntN(int(process.MaxPriority) + 1))
	}
	spawn := kernel.Spawn{Name: "zero_to_max", Program: ZeroToMax, Args: []string{strconv.Itoa(limit)}}
	pids := make([]process.PID, total)
	create := func() bool {
		for i := range pids {
			if pids[i], err = ctx.CreateProcess(spawn); err != nil {
				ctx.Eprintf("test_prio: %v\n", err)
				return false
			}
		}
		return true
	}
	waitAll := func() {
		for _, pid := range pids {
			_, _ = ctx.Wait(pid)
		}
	}

	ctx.Printf("SAME PRIORITY...\n")
	if !create() {
		return 1
	}
	waitAll()

	ctx.Printf("SAME PRIORITY, THEN CHANGE IT...\n")
	if !create() {
		return 1
	}
	for i, pid := range pids {
		_ = ctx.Nice(pid, priorities[i])
		ctx.Printf("  PROCESS %d NEW PRIORITY: %d\n", pid, priorities[i])
	}
	waitAll()

	ctx.Printf("SAME PRIORITY, THEN CHANGE IT WHILE BLOCKED...\n")
	if !create() {
		return 1
	}
	for i, pid := range pids {
		_ = ctx.Block(pid)
		_ = ctx.Nice(pid, priorities[i])
		ctx.Printf("  PROCESS %d NEW PRIORITY: %d\n", pid, priorities[i])
	}
	for _, pid := range pids {
		_ = ctx.Unblock(pid)
	}
	waitAll()
	return 0
}

// ProcessesTest creates endless loops and randomly kills, blocks and
// unblocks them until all are dead. Usage: test_processes [max] [rounds].
func ProcessesTest(ctx *kernel.Context, argv []string) int32 {
	maxProcesses, err := intArg(argv, 0, 8)
	if err != nil || maxProcesses <= 0 {
		ctx.Eprintf("test_processes: invalid process count\n")
		return 1
	}
	rounds, err := intArg(argv, 1, 1)
	if err != nil || rounds <= 0 {
		ctx.Eprintf("test_processes: invalid round count\n")
		return 1
	}
	type request struct {
		pid   process.PID
		state process.State
	}
	requests := make([]request, maxProcesses)
	for round := 0; round < rounds; round++ {
		alive := 0
		for i := range requests {
			pid, err := ctx.CreateProcess(kernel.Spawn{Name: "endless_loop", Program: EndlessLoop, Priority: process.MaxPriority})
			if err != nil {
				ctx.Eprintf("test_processes: ERROR creating process: %v\n", err)
				return 1
			}
			requests[i] = request{pid: pid, state: process.Running}
			alive++
		}
		for alive > 0 {
			for i := range requests {
				rq := &requests[i]
				if rq.state == process.Zombie {
					continue
				}
				if rand.IntN(2) == 0 {
					if err := ctx.Kill(rq.pid); err != nil {
						ctx.Eprintf("test_processes: ERROR killing process: %v\n", err)
						return 1
					}
					rq.state = process.Zombie
					alive--
				} else if rq.state == process.Running {
					if err := ctx.Block(rq.pid); err != nil {
						ctx.Eprintf("test_processes: ERROR blocking process: %v\n", err)
						return 1
					}
					rq.state = process.Blocked
				}
			}
			for i := range requests {
				rq := &requests[i]
				if rq.state == process.Blocked && rand.IntN(2) == 0 {
					if err := ctx.Unblock(rq.pid); err != nil {
						ctx.Eprintf("test_processes: ERROR unblocking process: %v\n", err)
						return 1
					}
					rq.state = process.Running
				}
			}
		}
		for _, rq := range requests {
			_, _ = ctx.Wait(rq.pid)
		}
		ctx.Printf("test_processes: round %d done\n", round+1)
	}
	return 0
}

// SyncTest runs pairs of processes incrementing and decrementing a shared
// value, optionally under a semaphore. Usage: test_sync [n] [use_sem].
func SyncTest(ctx *kernel.Context, argv []string) int32 {
	n, err := intArg(argv, 0, 1000)
	if err != nil || n <= 0 {
		ctx.Eprintf("test_sync: invalid iteration count\n")
		return 1
	}
	useSem, err := intArg(argv, 1, 1)
	if err != nil {
		ctx.Eprintf("test_sync: %v\n", err)
		return 1
	}
	locked := useSem != 0
	if locked {
		_ = ctx.SemDestroy(syncSemaphore)
		if err = ctx.SemInit(syncSemaphore, 1); err != nil {
			ctx.Eprintf("test_sync: %v\n", err)
			return 1
		}
	}
	var shared int64
	worker := func(inc int64) kernel.Program {
		return func(ctx *kernel.Context, argv []string) int32 {
			if locked {
				if err := ctx.SemOpen(syncSemaphore); err != nil {
					return 1
				}
				defer ctx.SemClose(syncSemaphore)
			}
			for i := 0; i < n; i++ {
				if locked {
					_ = ctx.SemWait(syncSemaphore)
				}
				value := shared
				ctx.Yield()
				shared = value + inc
				if locked {
					_ = ctx.SemPost(syncSemaphore)
				}
			}
			return 0
		}
	}
	const pairs = 2
	var pids []process.PID
	for i := 0; i < pairs; i++ {
		for _, inc := range []int64{1, -1} {
			pid, err := ctx.CreateProcess(kernel.Spawn{Name: "sync_worker", Program: worker(inc), Priority: 2})
			if err != nil {
				ctx.Eprintf("test_sync: %v\n", err)
				return 1
			}
			pids = append(pids, pid)
		}
	}
	for _, pid := range pids {
		_, _ = ctx.Wait(pid)
	}
	if locked {
		_ = ctx.SemDestroy(syncSemaphore)
	}
	ctx.Printf("Final value: %d\n", shared)
	if locked && shared != 0 {
		return 1
	}
	return 0
}
