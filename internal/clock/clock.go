// Package clock is the wall-clock seam used to timestamp process records and
// lifecycle events.
package clock

import "time"

var now = time.Now

// Now returns the current time.
func Now() time.Time { return now() }

// Freeze makes Now return t until the returned restore func is called.
func Freeze(t time.Time) (restore func()) {
	previous := now
	now = func() time.Time { return t }
	return func() { now = previous }
}
