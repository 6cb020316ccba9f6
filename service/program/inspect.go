package program

import (
	"github.com/viant/kcore/runtime/kernel"
)

// PS prints the process table.
func PS(ctx *kernel.Context, argv []string) int32 {
	rows := ctx.Snapshot()
	ctx.Printf("%-5s %-5s %-4s %-8s %-16s %-12s %-12s %s\n", "PID", "PPID", "PRIO", "STATE", "NAME", "STACK", "SP", "FG")
	for _, row := range rows {
		fg := "no"
		if row.Foreground {
			fg = "yes"
		}
		ctx.Printf("%-5d %-5d %-4d %-8s %-16s %#-12x %#-12x %s\n",
			row.PID, row.ParentPID, row.Priority, row.State, row.Name, uint64(row.StackBase), uint64(row.StackPointer), fg)
	}
	return 0
}

// Mem prints allocator usage.
func Mem(ctx *kernel.Context, argv []string) int32 {
	st := ctx.MemoryState()
	ctx.Printf("total=%d bytes, used=%d bytes, free=%d bytes\n", st.Total, st.Allocated, st.Available)
	return 0
}
