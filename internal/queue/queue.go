// Package queue implements doubly-linked queues whose nodes live in a shared
// pool and are addressed by index. A node can be detached from one list and
// relinked into another without reallocation, which lets a process record
// travel between ready levels, the blocked queue and zombie lists while the
// caller keeps a stable Handle to it.
package queue

import (
	"errors"
	"iter"
)

// Handle addresses a node within its Pool.
type Handle int32

// NoHandle is the zero link.
const NoHandle Handle = -1

var (
	// ErrExhausted is returned when the pool limit has been reached.
	ErrExhausted = errors.New("queue: node pool exhausted")
	// ErrNotLinked is returned when detaching a handle the list does not hold.
	ErrNotLinked = errors.New("queue: handle not linked into this list")
	// ErrLinked is returned when relinking or releasing a node that is still in a list.
	ErrLinked = errors.New("queue: handle still linked")
	// ErrInvalidHandle is returned for out-of-range or released handles.
	ErrInvalidHandle = errors.New("queue: invalid handle")
)

type node[T any] struct {
	data  T
	prev  Handle
	next  Handle
	owner *List[T]
	used  bool
}

// Pool owns node storage shared by all lists created from it.
type Pool[T any] struct {
	nodes []node[T]
	free  []Handle
	limit int
	inUse int
}

// NewPool creates a pool; limit <= 0 means unbounded.
func NewPool[T any](limit int) *Pool[T] {
	return &Pool[T]{limit: limit}
}

// NewList creates an empty list backed by the pool.
func (p *Pool[T]) NewList() *List[T] {
	return &List[T]{pool: p, head: NoHandle, tail: NoHandle}
}

// Alloc reserves a detached node holding data.
func (p *Pool[T]) Alloc(data T) (Handle, error) {
	if p.limit > 0 && p.inUse >= p.limit {
		return NoHandle, ErrExhausted
	}
	var h Handle
	if n := len(p.free); n > 0 {
		h = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.nodes = append(p.nodes, node[T]{})
		h = Handle(len(p.nodes) - 1)
	}
	p.nodes[h] = node[T]{data: data, prev: NoHandle, next: NoHandle, used: true}
	p.inUse++
	return h, nil
}

// Release returns a detached node to the pool.
func (p *Pool[T]) Release(h Handle) error {
	n, err := p.node(h)
	if err != nil {
		return err
	}
	if n.owner != nil {
		return ErrLinked
	}
	*n = node[T]{prev: NoHandle, next: NoHandle}
	p.free = append(p.free, h)
	p.inUse--
	return nil
}

// Data returns the payload stored at h.
func (p *Pool[T]) Data(h Handle) (T, bool) {
	n, err := p.node(h)
	if err != nil {
		var zero T
		return zero, false
	}
	return n.data, true
}

// Owner returns the list currently holding h, or nil when h is detached.
func (p *Pool[T]) Owner(h Handle) *List[T] {
	n, err := p.node(h)
	if err != nil {
		return nil
	}
	return n.owner
}

// InUse returns the number of allocated nodes.
func (p *Pool[T]) InUse() int {
	return p.inUse
}

func (p *Pool[T]) node(h Handle) (*node[T], error) {
	if h < 0 || int(h) >= len(p.nodes) || !p.nodes[h].used {
		return nil, ErrInvalidHandle
	}
	return &p.nodes[h], nil
}

// List is a FIFO over pool nodes.
type List[T any] struct {
	pool *Pool[T]
	head Handle
	tail Handle
	size int
}

// Append allocates a node for data and links it at the tail.
func (l *List[T]) Append(data T) (Handle, error) {
	h, err := l.pool.Alloc(data)
	if err != nil {
		return NoHandle, err
	}
	l.linkBack(h)
	return h, nil
}

// Prepend allocates a node for data and links it at the head.
func (l *List[T]) Prepend(data T) (Handle, error) {
	h, err := l.pool.Alloc(data)
	if err != nil {
		return NoHandle, err
	}
	l.linkFront(h)
	return h, nil
}

// AppendHandle links an allocated, detached node at the tail.
func (l *List[T]) AppendHandle(h Handle) error {
	if err := l.checkDetached(h); err != nil {
		return err
	}
	l.linkBack(h)
	return nil
}

// PrependHandle links an allocated, detached node at the head.
func (l *List[T]) PrependHandle(h Handle) error {
	if err := l.checkDetached(h); err != nil {
		return err
	}
	l.linkFront(h)
	return nil
}

// PopFront unlinks the head node. The node stays allocated: relink it or Release it.
func (l *List[T]) PopFront() (Handle, T, bool) {
	if l.head == NoHandle {
		var zero T
		return NoHandle, zero, false
	}
	h := l.head
	data := l.unlink(h)
	return h, data, true
}

// Front returns the head node without unlinking it.
func (l *List[T]) Front() (Handle, T, bool) {
	if l.head == NoHandle {
		var zero T
		return NoHandle, zero, false
	}
	return l.head, l.pool.nodes[l.head].data, true
}

// Detach unlinks h from the list in O(1). The node stays allocated.
func (l *List[T]) Detach(h Handle) (T, error) {
	n, err := l.pool.node(h)
	if err != nil {
		var zero T
		return zero, err
	}
	if n.owner != l {
		var zero T
		return zero, ErrNotLinked
	}
	return l.unlink(h), nil
}

// Remove detaches h and releases its node.
func (l *List[T]) Remove(h Handle) (T, error) {
	data, err := l.Detach(h)
	if err != nil {
		return data, err
	}
	return data, l.pool.Release(h)
}

// Find returns the first node whose payload satisfies match.
func (l *List[T]) Find(match func(T) bool) (Handle, bool) {
	for h, data := range l.All() {
		if match(data) {
			return h, true
		}
	}
	return NoHandle, false
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int { return l.size }

// IsEmpty reports whether the list holds no node.
func (l *List[T]) IsEmpty() bool { return l.size == 0 }

// All iterates head to tail. The list must not be mutated during iteration.
func (l *List[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for h := l.head; h != NoHandle; {
			n := &l.pool.nodes[h]
			next := n.next
			if !yield(h, n.data) {
				return
			}
			h = next
		}
	}
}

func (l *List[T]) checkDetached(h Handle) error {
	n, err := l.pool.node(h)
	if err != nil {
		return err
	}
	if n.owner != nil {
		return ErrLinked
	}
	return nil
}

func (l *List[T]) linkBack(h Handle) {
	n := &l.pool.nodes[h]
	n.owner = l
	n.next = NoHandle
	n.prev = l.tail
	if l.tail != NoHandle {
		l.pool.nodes[l.tail].next = h
	} else {
		l.head = h
	}
	l.tail = h
	l.size++
}

func (l *List[T]) linkFront(h Handle) {
	n := &l.pool.nodes[h]
	n.owner = l
	n.prev = NoHandle
	n.next = l.head
	if l.head != NoHandle {
		l.pool.nodes[l.head].prev = h
	} else {
		l.tail = h
	}
	l.head = h
	l.size++
}

func (l *List[T]) unlink(h Handle) T {
	n := &l.pool.nodes[h]
	if n.prev != NoHandle {
		l.pool.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != NoHandle {
		l.pool.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.owner = NoHandle, NoHandle, nil
	l.size--
	return n.data
}
