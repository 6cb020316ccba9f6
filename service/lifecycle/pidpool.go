package lifecycle

import "github.com/viant/kcore/model/process"

// pidPool hands out pids, preferring recently released ones. Released pids
// beyond limit are not kept; they are found again by scanning once the
// counter runs out.
type pidPool struct {
	free  []process.PID
	limit int
	next  process.PID
	max   int
}

func newPIDPool(limit, max int) *pidPool {
	return &pidPool{limit: limit, next: 1, max: max}
}

func (p *pidPool) acquire(inUse func(pid process.PID) bool) (process.PID, bool) {
	for n := len(p.free); n > 0; n = len(p.free) {
		pid := p.free[n-1]
		p.free = p.free[:n-1]
		if !inUse(pid) {
			return pid, true
		}
	}
	for int(p.next) < p.max && p.next != process.NoPID {
		pid := p.next
		p.next++
		if !inUse(pid) {
			return pid, true
		}
	}
	for pid := 1; pid < p.max; pid++ {
		if !inUse(process.PID(pid)) {
			return process.PID(pid), true
		}
	}
	return process.NoPID, false
}

func (p *pidPool) release(pid process.PID) {
	if pid == process.NoPID || len(p.free) >= p.limit {
		return
	}
	p.free = append(p.free, pid)
}
