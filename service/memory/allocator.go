// Package memory provides the first-fit free-list allocator that backs
// process control blocks, stacks, argument blocks and semaphore records.
// Only address ranges are tracked; no bytes are backed.
package memory

import (
	"log/slog"
	"sort"

	"github.com/viant/kcore/model/process"
)

// unitSize is the block header size; every block is a whole number of units
// including one header unit.
const unitSize = 16

// Stats reports pool usage.
type Stats struct {
	Total     uint64 `json:"total" yaml:"total"`
	Allocated uint64 `json:"allocated" yaml:"allocated"`
	Available uint64 `json:"available" yaml:"available"`
}

type block struct {
	start uint64
	units uint64
}

func (b block) end() uint64 { return b.start + b.units*unitSize }

// Allocator is a K&R style allocator: address ordered free list, tail split on
// allocation, coalescing with both neighbours on free.
type Allocator struct {
	config    Config
	free      []block
	used      map[process.Address]block
	allocated uint64
	logger    *slog.Logger
}

// Alloc reserves size bytes and returns the payload address.
func (a *Allocator) Alloc(size int) (process.Address, bool) {
	if size <= 0 {
		return 0, false
	}
	units := (uint64(size)+unitSize-1)/unitSize + 1
	for i := range a.free {
		candidate := &a.free[i]
		if candidate.units < units {
			continue
		}
		var taken block
		if candidate.units == units {
			taken = *candidate
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			candidate.units -= units
			taken = block{start: candidate.end(), units: units}
		}
		addr := process.Address(taken.start + unitSize)
		a.used[addr] = taken
		a.allocated += taken.units * unitSize
		return addr, true
	}
	a.logger.Debug("allocation failed", "size", size, "available", a.config.Size-a.allocated)
	return 0, false
}

// Free releases an address returned by Alloc. Unknown addresses are ignored.
func (a *Allocator) Free(addr process.Address) {
	if addr == 0 {
		return
	}
	b, ok := a.used[addr]
	if !ok {
		a.logger.Warn("free of unknown address", "address", uint64(addr))
		return
	}
	delete(a.used, addr)
	a.allocated -= b.units * unitSize

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].start > b.start })
	a.free = append(a.free, block{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = b
	if i+1 < len(a.free) && a.free[i].end() == a.free[i+1].start {
		a.free[i].units += a.free[i+1].units
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].end() == a.free[i].start {
		a.free[i-1].units += a.free[i].units
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// State returns the pool usage.
func (a *Allocator) State() Stats {
	return Stats{
		Total:     a.config.Size,
		Allocated: a.allocated,
		Available: a.config.Size - a.allocated,
	}
}

// New creates an allocator over config's range.
func New(config Config, opts ...Option) *Allocator {
	units := config.Size / unitSize
	ret := &Allocator{
		config: Config{Base: config.Base, Size: units * unitSize},
		used:   make(map[process.Address]block),
		logger: slog.Default(),
	}
	if units > 0 {
		ret.free = []block{{start: config.Base, units: units}}
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
