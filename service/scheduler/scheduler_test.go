package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
)

func newProcess(pid process.PID, priority uint8) *process.Process {
	return &process.Process{
		PID:             pid,
		Serial:          uint64(pid),
		Priority:        priority,
		StackPointer:    process.StackPointer(pid) * 0x1000,
		FileDescriptors: process.DefaultDescriptors(),
	}
}

func sp(pid process.PID) process.StackPointer {
	return process.StackPointer(pid) * 0x1000
}

// assertPlacement checks that every indexed process sits in exactly the place its state implies.
func assertPlacement(t *testing.T, s *Scheduler) {
	t.Helper()
	for p := range s.Processes() {
		holder := s.Holder(p.PID)
		switch p.State {
		case process.Ready:
			assert.Same(t, s.ready[p.Priority], holder, "pid %d", p.PID)
		case process.Blocked:
			if p.PID == s.current && holder == nil {
				continue
			}
			assert.Same(t, s.blocked, holder, "pid %d", p.PID)
		case process.Running:
			assert.Nil(t, holder, "pid %d", p.PID)
			assert.Equal(t, s.current, p.PID)
		}
	}
}

func TestScheduler_Register(t *testing.T) {
	testCases := []struct {
		name      string
		process   *process.Process
		expectErr error
	}{
		{name: "valid", process: newProcess(3, 2)},
		{name: "zero pid", process: newProcess(0, 2), expectErr: model.ErrInvalidArgument},
		{name: "out of range", process: newProcess(16, 2), expectErr: model.ErrInvalidArgument},
		{name: "duplicate", process: newProcess(1, 1), expectErr: model.ErrInvalidArgument},
		{name: "bad priority", process: newProcess(4, 5), expectErr: model.ErrInvalidArgument},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Config{MaxProcesses: 16})
			assert.NoError(t, s.Register(newProcess(1, 0)))
			err := s.Register(tc.process)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, process.Ready, tc.process.State)
			assert.Equal(t, 2, s.ReadyCount())
			assertPlacement(t, s)
		})
	}
}

func TestScheduler_HighestLevelFirstAndFIFO(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	a, b, c := newProcess(1, 2), newProcess(2, 2), newProcess(3, 4)
	for _, p := range []*process.Process{a, b, c} {
		assert.NoError(t, s.Register(p))
	}

	next := s.Schedule(0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, sp(3), next)
		assert.Equal(t, process.PID(3), s.Current())
		assertPlacement(t, s)
		next = s.Schedule(next)
	}
	assert.Equal(t, uint8(4), c.Priority)

	assert.NoError(t, s.SetStatus(3, process.Blocked))
	next = s.Schedule(next)
	var picked []process.PID
	for i := 0; i < 4; i++ {
		picked = append(picked, s.Current())
		assertPlacement(t, s)
		next = s.Schedule(next)
	}
	assert.Equal(t, []process.PID{1, 2, 1, 2}, picked)

	assert.NoError(t, s.SetStatus(3, process.Ready))
	assert.Equal(t, uint32(0), s.Remaining())
	next = s.Schedule(next)
	assert.Equal(t, sp(3), next)
}

func TestScheduler_UnblockBoostsAndPrepends(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	high, low := newProcess(1, 4), newProcess(2, 0)
	assert.NoError(t, s.Register(high))
	assert.NoError(t, s.Register(low))
	assert.NoError(t, s.SetStatus(2, process.Blocked))
	assertPlacement(t, s)

	assert.NoError(t, s.SetStatus(2, process.Ready))
	assert.Equal(t, process.MaxPriority, low.Priority)
	assertPlacement(t, s)
	assert.Equal(t, sp(2), s.Schedule(0))
	assert.Equal(t, sp(1), s.Schedule(sp(2)))
}

func TestScheduler_TickDemotesAndFloors(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	p := newProcess(1, 4)
	assert.NoError(t, s.Register(p))
	current := s.Schedule(0)
	assert.Equal(t, uint32(1), s.Remaining())

	var priorities []uint8
	for i := 0; i < 5; i++ {
		for s.Remaining() > 1 {
			current = s.Tick(current)
			assert.Equal(t, sp(1), current)
		}
		current = s.Tick(current)
		priorities = append(priorities, p.Priority)
		assert.Equal(t, Quantum(p.Priority), s.Remaining())
	}
	assert.Equal(t, []uint8{3, 2, 1, 0, 0}, priorities)

	for i := 0; i < 50; i++ {
		current = s.Tick(current)
	}
	assert.Equal(t, uint8(0), p.Priority)
	assert.Equal(t, process.Running, p.State)
}

func TestScheduler_YieldDoesNotDemote(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	p := newProcess(1, 3)
	assert.NoError(t, s.Register(p))
	current := s.Schedule(0)
	s.YieldNow()
	assert.Equal(t, uint32(0), s.Remaining())
	current = s.Tick(current)
	assert.Equal(t, sp(1), current)
	assert.Equal(t, uint8(3), p.Priority)
	assert.Equal(t, uint32(1), s.Remaining())
}

func TestScheduler_Quantum(t *testing.T) {
	assert.Equal(t, uint32(4), Quantum(0))
	assert.Equal(t, uint32(2), Quantum(2))
	assert.Equal(t, uint32(1), Quantum(3))
	assert.Equal(t, uint32(1), Quantum(4))
}

func TestScheduler_SetStatus(t *testing.T) {
	testCases := []struct {
		name      string
		pid       process.PID
		state     process.State
		zombie    bool
		expectErr error
	}{
		{name: "unknown pid", pid: 9, state: process.Blocked, expectErr: model.ErrNotFound},
		{name: "running target", pid: 1, state: process.Running, expectErr: model.ErrInvalidArgument},
		{name: "zombie target", pid: 1, state: process.Zombie, expectErr: model.ErrInvalidArgument},
		{name: "zombie process", pid: 1, state: process.Ready, zombie: true, expectErr: model.ErrInvalidArgument},
		{name: "ready no-op", pid: 1, state: process.Ready},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Config{MaxProcesses: 16})
			p := newProcess(1, 2)
			assert.NoError(t, s.Register(p))
			if tc.zombie {
				assert.NoError(t, s.Unlink(1))
				p.State = process.Zombie
			}
			before := *p
			err := s.SetStatus(tc.pid, tc.state)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, before.State, p.State)
			assert.Equal(t, before.Priority, p.Priority)
		})
	}
}

func TestScheduler_SetPriority(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	a, b := newProcess(1, 1), newProcess(2, 2)
	assert.NoError(t, s.Register(a))
	assert.NoError(t, s.Register(b))

	assert.ErrorIs(t, s.SetPriority(1, 5), model.ErrInvalidArgument)
	assert.ErrorIs(t, s.SetPriority(7, 1), model.ErrNotFound)

	assert.NoError(t, s.SetPriority(1, 3))
	assertPlacement(t, s)
	assert.Equal(t, sp(1), s.Schedule(0))

	assert.NoError(t, s.SetPriority(1, 0))
	assert.Nil(t, s.Holder(1))
	assert.Equal(t, sp(2), s.Schedule(sp(1)))
	assert.Same(t, s.ready[0], s.Holder(1))
}

func TestScheduler_ForegroundKill(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	fg, bg := newProcess(1, 4), newProcess(2, 2)
	bg.FileDescriptors[process.Stdin] = process.DevNull
	assert.NoError(t, s.Register(fg))
	assert.NoError(t, s.Register(bg))

	var killed []process.PID
	s.OnForegroundKill(func(pid process.PID) error {
		killed = append(killed, pid)
		return s.Unlink(pid)
	})

	current := s.Schedule(0)
	s.RequestForegroundKill()
	current = s.Schedule(current)
	assert.Equal(t, []process.PID{1}, killed)
	assert.Equal(t, sp(2), current)

	s.RequestForegroundKill()
	s.Schedule(current)
	assert.Equal(t, []process.PID{1}, killed)
	assert.True(t, s.KillPending(), "a background switch leaves the request pending")
}

func TestScheduler_ForegroundKillSurvivesBackgroundSwitch(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	bg, fg := newProcess(1, 4), newProcess(2, 2)
	bg.FileDescriptors[process.Stdin] = process.DevNull
	assert.NoError(t, s.Register(bg))
	assert.NoError(t, s.Register(fg))

	var killed []process.PID
	s.OnForegroundKill(func(pid process.PID) error {
		killed = append(killed, pid)
		return s.Unlink(pid)
	})

	current := s.Schedule(0)
	assert.Equal(t, sp(1), current)
	s.RequestForegroundKill()
	assert.NoError(t, s.SetStatus(1, process.Blocked))
	current = s.Schedule(current)
	assert.Empty(t, killed)
	assert.Equal(t, sp(2), current)
	assert.True(t, s.KillPending())

	s.Schedule(current)
	assert.Equal(t, []process.PID{2}, killed)
	assert.False(t, s.KillPending())
}

func TestScheduler_IdleContext(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	assert.Equal(t, process.StackPointer(0x42), s.Schedule(0x42))

	s.SetIdleContext(0x99)
	p := newProcess(1, 1)
	assert.NoError(t, s.Register(p))
	current := s.Schedule(0x99)
	assert.Equal(t, sp(1), current)
	assert.NoError(t, s.SetStatus(1, process.Blocked))
	assert.Equal(t, process.StackPointer(0x99), s.Schedule(current))
	assert.Equal(t, process.NoPID, s.Current())
	assertPlacement(t, s)
}

func TestScheduler_ZombieListsAndRemove(t *testing.T) {
	s := New(Config{MaxProcesses: 16})
	parent, child := newProcess(1, 2), newProcess(2, 2)
	assert.NoError(t, s.Register(parent))
	assert.NoError(t, s.Register(child))
	parent.ZombieChildren = s.NewList()

	assert.ErrorIs(t, s.Adopt(parent.ZombieChildren, 2), model.ErrInvalidArgument)
	assert.NoError(t, s.Unlink(2))
	child.State = process.Zombie
	assert.NoError(t, s.Adopt(parent.ZombieChildren, 2))
	assert.Same(t, parent.ZombieChildren, s.Holder(2))
	assert.False(t, s.Alive(child.Ref()))

	assert.NoError(t, s.Reap(parent.ZombieChildren, 2))
	assert.True(t, parent.ZombieChildren.IsEmpty())
	s.Remove(2)
	_, ok := s.Lookup(2)
	assert.False(t, ok)
	assert.Equal(t, 1, s.ReadyCount())

	assert.NoError(t, s.Register(newProcess(2, 0)))
	_, ok = s.Resolve(child.Ref())
	assert.True(t, ok)
	_, ok = s.Resolve(process.Ref{PID: 2, Serial: 99})
	assert.False(t, ok)
}
