package lifecycle

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/service/memory"
	"github.com/viant/kcore/service/pipe"
	"github.com/viant/kcore/service/scheduler"
)

type fakeMachine struct {
	entries  map[process.StackPointer]func()
	released []process.StackPointer
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{entries: map[process.StackPointer]func(){}}
}

func (f *fakeMachine) MakeInitialContext(entry func(), stackTop process.Address) process.StackPointer {
	sp := process.StackPointer(stackTop) - 0x10
	f.entries[sp] = entry
	return sp
}

func (f *fakeMachine) Release(sp process.StackPointer) {
	delete(f.entries, sp)
	f.released = append(f.released, sp)
}

type yielderFunc func()

func (f yielderFunc) Yield() { f() }

type failingAllocator struct {
	*memory.Allocator
	failAt int
	calls  int
}

func (f *failingAllocator) Alloc(size int) (process.Address, bool) {
	f.calls++
	if f.calls == f.failAt {
		return 0, false
	}
	return f.Allocator.Alloc(size)
}

type fixture struct {
	manager   *Manager
	scheduler *scheduler.Scheduler
	memory    *memory.Allocator
	machine   *fakeMachine
	changes   []process.Change
}

func newFixture(allocator Allocator, opts ...Option) *fixture {
	ret := &fixture{
		scheduler: scheduler.New(scheduler.Config{MaxProcesses: 32}),
		memory:    memory.New(memory.Config{Base: 0x100000, Size: 1 << 20}),
		machine:   newFakeMachine(),
	}
	if allocator == nil {
		allocator = ret.memory
	}
	opts = append([]Option{WithListener(func(change process.Change) {
		ret.changes = append(ret.changes, change)
	})}, opts...)
	ret.manager = New(DefaultConfig(), ret.scheduler, allocator, ret.machine, opts...)
	return ret
}

func noop([]string) int32 { return 0 }

// startParent creates a top priority process and makes it the running one.
func (f *fixture) startParent(t *testing.T) process.PID {
	pid, err := f.manager.Create(Spec{Name: "parent", Priority: process.MaxPriority, Entry: noop})
	assert.NoError(t, err)
	f.scheduler.Schedule(0)
	assert.Equal(t, pid, f.scheduler.Current())
	return pid
}

func (f *fixture) child(t *testing.T, name string) process.PID {
	pid, err := f.manager.Create(Spec{Name: name, Priority: 1, Entry: noop})
	assert.NoError(t, err)
	return pid
}

func TestManager_Create(t *testing.T) {
	f := newFixture(nil)
	args := []string{"zero_to_max", "3"}
	pid, err := f.manager.Create(Spec{Name: "worker", Args: args, Priority: 2, Entry: noop})
	assert.NoError(t, err)
	assert.Equal(t, process.PID(1), pid)
	args[1] = "changed"

	p, ok := f.manager.Get(pid)
	assert.True(t, ok)
	assert.Equal(t, process.Ready, p.State)
	assert.Equal(t, []string{"zero_to_max", "3"}, p.Argv.Args())
	assert.Equal(t, process.NoPID, p.ParentPID)
	assert.Equal(t, 8*4096, p.StackSize)
	assert.Contains(t, f.machine.entries, p.StackPointer)
	assert.Greater(t, f.memory.State().Allocated, uint64(8*4096))

	rows := f.manager.Snapshot()
	assert.Equal(t, []process.Info{{
		PID:          pid,
		Priority:     2,
		State:        process.Ready,
		Name:         "worker",
		StackBase:    p.StackBase,
		StackPointer: p.StackPointer,
		Foreground:   true,
	}}, rows)
	assert.Equal(t, process.ChangeCreated, f.changes[0].Type)
}

func TestManager_CreateValidation(t *testing.T) {
	testCases := []struct {
		name string
		spec Spec
	}{
		{name: "no entry", spec: Spec{Name: "x"}},
		{name: "no name", spec: Spec{Entry: noop}},
		{name: "priority", spec: Spec{Name: "x", Entry: noop, Priority: 5}},
		{name: "descriptor count", spec: Spec{Name: "x", Entry: noop, FileDescriptors: []process.FD{0}}},
		{name: "pipe without registry", spec: Spec{Name: "x", Entry: noop, FileDescriptors: []process.FD{3, 1, 2}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(nil)
			_, err := f.manager.Create(tc.spec)
			assert.ErrorIs(t, err, model.ErrInvalidArgument)
			assert.Equal(t, uint64(0), f.memory.State().Allocated)
		})
	}
}

func TestManager_CreateRollback(t *testing.T) {
	for failAt := 1; failAt <= 4; failAt++ {
		allocator := &failingAllocator{failAt: failAt}
		f := newFixture(allocator)
		allocator.Allocator = f.memory

		_, err := f.manager.Create(Spec{Name: "worker", Args: []string{"a"}, Entry: noop})
		assert.ErrorIs(t, err, model.ErrResourceExhausted, "fail at %d", failAt)
		assert.Equal(t, uint64(0), f.memory.State().Allocated, "fail at %d", failAt)
		assert.Empty(t, f.machine.entries)
		assert.Empty(t, f.manager.Snapshot())

		pid, err := f.manager.Create(Spec{Name: "worker", Entry: noop})
		assert.NoError(t, err)
		assert.Equal(t, process.PID(1), pid)
	}
}

func TestManager_Pipes(t *testing.T) {
	registry := pipe.New(4)
	f := newFixture(nil, WithPipes(registry))

	_, err := f.manager.Create(Spec{Name: "reader", Entry: noop, FileDescriptors: []process.FD{7, 1, 2}})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, uint64(0), f.memory.State().Allocated)
	assert.Empty(t, f.machine.entries)

	fd, err := registry.Create()
	assert.NoError(t, err)
	writer, err := f.manager.Create(Spec{Name: "writer", Entry: noop, FileDescriptors: []process.FD{process.DevNull, fd, 2}})
	assert.NoError(t, err)
	reader, err := f.manager.Create(Spec{Name: "reader", Entry: noop, FileDescriptors: []process.FD{fd, 1, 2}})
	assert.NoError(t, err)
	readers, writers, ok := registry.Endpoints(fd)
	assert.True(t, ok)
	assert.Equal(t, 1, readers)
	assert.Equal(t, 1, writers)

	p, _ := f.manager.Get(writer)
	assert.False(t, p.Foreground())

	assert.NoError(t, f.manager.Terminate(writer, 0))
	assert.NoError(t, f.manager.Terminate(reader, 0))
	_, _, ok = registry.Endpoints(fd)
	assert.False(t, ok)
}

func TestManager_TerminateWaitRoundTrip(t *testing.T) {
	f := newFixture(nil)
	parent := f.startParent(t)
	baseline := f.memory.State().Allocated
	child := f.child(t, "child")

	assert.NoError(t, f.manager.Terminate(child, 42))
	p, _ := f.manager.Get(child)
	assert.Equal(t, process.Zombie, p.State)
	parentRecord, _ := f.manager.Get(parent)
	assert.Same(t, parentRecord.ZombieChildren, f.scheduler.Holder(child))
	assert.Len(t, f.manager.Snapshot(), 2)

	ret, err := f.manager.Wait(child)
	assert.NoError(t, err)
	assert.Equal(t, int32(42), ret)
	assert.Equal(t, process.Dead, p.State)
	assert.Equal(t, baseline, f.memory.State().Allocated)

	_, err = f.manager.Wait(child)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManager_WaitBlocks(t *testing.T) {
	var f *fixture
	var parent, child process.PID
	yields := 0
	f = newFixture(nil, WithYielder(yielderFunc(func() {
		yields++
		p, _ := f.manager.Get(parent)
		assert.Equal(t, process.Blocked, p.State)
		assert.Equal(t, child, p.WaitingFor)
		if yields == 1 {
			assert.NoError(t, f.scheduler.SetStatus(parent, process.Ready))
			return
		}
		assert.NoError(t, f.manager.Terminate(child, 7))
		assert.Equal(t, process.Ready, p.State)
		assert.Equal(t, process.MaxPriority, p.Priority)
	})))
	parent = f.startParent(t)
	child = f.child(t, "child")

	ret, err := f.manager.Wait(child)
	assert.NoError(t, err)
	assert.Equal(t, int32(7), ret)
	assert.Equal(t, 2, yields)
	p, _ := f.manager.Get(parent)
	assert.Equal(t, process.NoPID, p.WaitingFor)
}

func TestManager_WaitProtocolViolation(t *testing.T) {
	var f *fixture
	var parent, child process.PID
	f = newFixture(nil, WithYielder(yielderFunc(func() {
		assert.NoError(t, f.manager.Destroy(child))
		assert.NoError(t, f.scheduler.SetStatus(parent, process.Ready))
	})))
	parent = f.startParent(t)
	child = f.child(t, "child")

	_, err := f.manager.Wait(child)
	assert.ErrorIs(t, err, model.ErrProtocolViolation)
	p, _ := f.manager.Get(parent)
	assert.Equal(t, process.NoPID, p.WaitingFor)
}

func TestManager_PermissionDenied(t *testing.T) {
	f := newFixture(nil)
	stranger, err := f.manager.Create(Spec{Name: "stranger", Entry: noop})
	assert.NoError(t, err)
	guard, err := f.manager.Create(Spec{Name: "guard", Entry: noop, Unkillable: true, Priority: 2})
	assert.NoError(t, err)
	parent := f.startParent(t)
	child := f.child(t, "child")

	_, err = f.manager.Wait(stranger)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	_, err = f.manager.Wait(parent)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	_, err = f.manager.Wait(99)
	assert.ErrorIs(t, err, model.ErrNotFound)

	holder := f.scheduler.Holder(guard)
	assert.ErrorIs(t, f.manager.Terminate(guard, 1), model.ErrPermissionDenied)
	g, _ := f.manager.Get(guard)
	assert.Equal(t, process.Ready, g.State)
	assert.Same(t, holder, f.scheduler.Holder(guard))

	assert.NoError(t, f.manager.Terminate(child, 1))
	assert.ErrorIs(t, f.manager.Terminate(child, 1), model.ErrPermissionDenied)
	assert.ErrorIs(t, f.manager.Terminate(99, 1), model.ErrNotFound)
}

func TestManager_TerminateDestroysQueuedZombies(t *testing.T) {
	f := newFixture(nil)
	parent := f.startParent(t)
	z1 := f.child(t, "z1")
	z2 := f.child(t, "z2")
	live := f.child(t, "live")
	assert.NoError(t, f.manager.Terminate(z1, 1))
	assert.NoError(t, f.manager.Terminate(z2, 2))
	r1, _ := f.manager.Get(z1)
	r2, _ := f.manager.Get(z2)

	assert.NoError(t, f.manager.Terminate(parent, 0))
	assert.Equal(t, process.Dead, r1.State)
	assert.Equal(t, process.Dead, r2.State)
	_, ok := f.manager.Get(parent)
	assert.False(t, ok)
	assert.Equal(t, process.NoPID, f.scheduler.Current())

	orphan, ok := f.manager.Get(live)
	assert.True(t, ok)
	assert.Equal(t, process.NoPID, orphan.ParentPID)
	assert.NoError(t, f.manager.Terminate(live, 3))
	_, ok = f.manager.Get(live)
	assert.False(t, ok)

	assert.Equal(t, uint64(0), f.memory.State().Allocated)
	assert.Empty(t, f.machine.entries)
	assert.Empty(t, f.manager.Snapshot())
}

func TestManager_Trampoline(t *testing.T) {
	f := newFixture(nil, WithYielder(yielderFunc(runtime.Goexit)))
	pid, err := f.manager.Create(Spec{
		Name:       "worker",
		Args:       []string{"a", "b"},
		Unkillable: true,
		Entry:      func(argv []string) int32 { return int32(len(argv) + 10) },
	})
	assert.NoError(t, err)
	next := f.scheduler.Schedule(0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.machine.entries[next]()
	}()
	<-done

	_, ok := f.manager.Get(pid)
	assert.False(t, ok)
	var terminated *process.Change
	for i := range f.changes {
		if f.changes[i].Type == process.ChangeTerminated {
			terminated = &f.changes[i]
		}
	}
	if assert.NotNil(t, terminated) {
		assert.Equal(t, int32(12), terminated.RetValue)
	}
}

func TestManager_PIDReuse(t *testing.T) {
	f := newFixture(nil)
	a := f.child(t, "a")
	b := f.child(t, "b")
	assert.Equal(t, []process.PID{1, 2}, []process.PID{a, b})
	assert.NoError(t, f.manager.Destroy(a))
	c := f.child(t, "c")
	assert.Equal(t, a, c)
	d := f.child(t, "d")
	assert.Equal(t, process.PID(3), d)
}

func TestManager_ForegroundKill(t *testing.T) {
	f := newFixture(nil)
	pid, err := f.manager.Create(Spec{Name: "loop", Priority: 2, Entry: noop})
	assert.NoError(t, err)
	current := f.scheduler.Schedule(0)

	f.scheduler.RequestForegroundKill()
	f.scheduler.Schedule(current)
	_, ok := f.manager.Get(pid)
	assert.False(t, ok)
	last := f.changes[len(f.changes)-1]
	assert.Equal(t, process.ChangeDestroyed, last.Type)
	assert.Equal(t, KilledStatus, last.RetValue)
}
