package model

import "errors"

// Kernel error taxonomy. Callers wrap these with fmt.Errorf("%w: ...") and
// detect the class with errors.Is.

var (
	// ErrNotFound is returned when a pid or semaphore id names nothing live.
	ErrNotFound = errors.New("kernel: not found")

	// ErrInvalidArgument indicates an out-of-range priority, id or descriptor,
	// or a state transition target that is not accepted.
	ErrInvalidArgument = errors.New("kernel: invalid argument")

	// ErrPermissionDenied is returned when terminating an unkillable or zombie
	// process, waiting on a process that is not a child of the caller, or
	// destroying a semaphore that still has waiters.
	ErrPermissionDenied = errors.New("kernel: permission denied")

	// ErrResourceExhausted is returned when the allocator, the pid space or a
	// fixed table has no room left.
	ErrResourceExhausted = errors.New("kernel: resource exhausted")

	// ErrProtocolViolation signals a broken internal rendezvous, e.g. a woken
	// waiter that cannot find the zombie it was waiting for.
	ErrProtocolViolation = errors.New("kernel: protocol violation")
)
