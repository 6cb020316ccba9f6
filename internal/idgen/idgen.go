// Package idgen issues the opaque identifiers of kernel boots and queued
// messages.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var next = func() string { return uuid.NewString() }

// New returns a random UUID string.
func New() string { return next() }

// Sequence makes New return prefix-1, prefix-2, ... until restore is called.
func Sequence(prefix string) (restore func()) {
	previous := next
	var counter atomic.Uint64
	next = func() string { return fmt.Sprintf("%s-%d", prefix, counter.Add(1)) }
	return func() { next = previous }
}
