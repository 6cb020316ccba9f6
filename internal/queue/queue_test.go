package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect[T any](l *List[T]) []T {
	var ret []T
	for _, v := range l.All() {
		ret = append(ret, v)
	}
	return ret
}

func TestList_AppendPrependPop(t *testing.T) {
	pool := NewPool[int](0)
	list := pool.NewList()
	assert.True(t, list.IsEmpty())

	_, err := list.Append(2)
	assert.NoError(t, err)
	_, err = list.Append(3)
	assert.NoError(t, err)
	_, err = list.Prepend(1)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, collect(list))
	assert.Equal(t, 3, list.Len())

	h, v, ok := list.PopFront()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Nil(t, pool.Owner(h))
	assert.NoError(t, pool.Release(h))
	assert.Equal(t, []int{2, 3}, collect(list))

	for !list.IsEmpty() {
		h, _, _ := list.PopFront()
		assert.NoError(t, pool.Release(h))
	}
	_, _, ok = list.PopFront()
	assert.False(t, ok)
	assert.Equal(t, 0, pool.InUse())
}

func TestList_Detach(t *testing.T) {
	testCases := []struct {
		name   string
		detach int
		expect []string
	}{
		{name: "head", detach: 0, expect: []string{"b", "c"}},
		{name: "middle", detach: 1, expect: []string{"a", "c"}},
		{name: "tail", detach: 2, expect: []string{"a", "b"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pool := NewPool[string](0)
			list := pool.NewList()
			var handles []Handle
			for _, v := range []string{"a", "b", "c"} {
				h, err := list.Append(v)
				assert.NoError(t, err)
				handles = append(handles, h)
			}
			_, err := list.Detach(handles[tc.detach])
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, collect(list))

			_, err = list.Detach(handles[tc.detach])
			assert.ErrorIs(t, err, ErrNotLinked)
			assert.Equal(t, 2, list.Len())
		})
	}
}

func TestList_MoveHandleBetweenLists(t *testing.T) {
	pool := NewPool[int](0)
	ready := pool.NewList()
	blocked := pool.NewList()
	h, err := ready.Append(7)
	assert.NoError(t, err)

	assert.ErrorIs(t, blocked.AppendHandle(h), ErrLinked)
	_, err = blocked.Detach(h)
	assert.ErrorIs(t, err, ErrNotLinked)

	_, err = ready.Detach(h)
	assert.NoError(t, err)
	assert.NoError(t, blocked.PrependHandle(h))
	assert.Equal(t, blocked, pool.Owner(h))
	assert.True(t, ready.IsEmpty())
	assert.Equal(t, []int{7}, collect(blocked))

	assert.ErrorIs(t, pool.Release(h), ErrLinked)
	_, err = blocked.Remove(h)
	assert.NoError(t, err)
	assert.ErrorIs(t, pool.Release(h), ErrInvalidHandle)
}

func TestPool_Limit(t *testing.T) {
	pool := NewPool[int](2)
	list := pool.NewList()
	_, err := list.Append(1)
	assert.NoError(t, err)
	h, err := list.Append(2)
	assert.NoError(t, err)
	_, err = list.Append(3)
	assert.ErrorIs(t, err, ErrExhausted)

	_, err = list.Remove(h)
	assert.NoError(t, err)
	_, err = list.Prepend(3)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 1}, collect(list))
}

func TestList_Find(t *testing.T) {
	pool := NewPool[int](0)
	list := pool.NewList()
	for i := 1; i <= 4; i++ {
		_, _ = list.Append(i * 10)
	}
	h, ok := list.Find(func(v int) bool { return v == 30 })
	assert.True(t, ok)
	v, _ := pool.Data(h)
	assert.Equal(t, 30, v)
	_, ok = list.Find(func(v int) bool { return v == 5 })
	assert.False(t, ok)
}
