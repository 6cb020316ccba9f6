package semaphore

import (
	"sync/atomic"

	"github.com/viant/kcore/internal/queue"
	"github.com/viant/kcore/model/process"
)

// Semaphore is a counting semaphore guarded by a one word mutex.
type Semaphore struct {
	id           int
	value        uint32
	mutex        atomic.Uint32
	waiters      *queue.List[process.Ref]
	mutexWaiters *queue.List[process.Ref]
	opens        int
	address      process.Address
}

// ID returns the table slot of the semaphore.
func (s *Semaphore) ID() int { return s.id }

// Value returns the current count.
func (s *Semaphore) Value() uint32 { return s.value }

// Waiting returns the number of queued waiters, stale entries included.
func (s *Semaphore) Waiting() int {
	return s.waiters.Len() + s.mutexWaiters.Len()
}
