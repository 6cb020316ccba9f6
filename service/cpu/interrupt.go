package cpu

import (
	"context"
	"time"
)

// Interrupt raises the timer line.
func (m *Machine) Interrupt() {
	m.pending.Add(1)
	m.ticks.Add(1)
	m.Wake()
}

// Wake rouses a halted context without raising a timer interrupt, so it
// neither counts as a tick nor shortens the running quantum.
func (m *Machine) Wake() {
	select {
	case m.irq <- struct{}{}:
	default:
	}
}

// TakeInterrupts acknowledges and returns the pending timer interrupts.
func (m *Machine) TakeInterrupts() int {
	return int(m.pending.Swap(0))
}

// Ticks returns the number of timer interrupts raised since boot.
func (m *Machine) Ticks() uint64 {
	return m.ticks.Load()
}

// WaitInterrupt halts until an interrupt is pending or Wake is called. It
// returns false once the machine is stopping.
func (m *Machine) WaitInterrupt() bool {
	if m.pending.Load() > 0 {
		return true
	}
	select {
	case <-m.irq:
		return true
	case <-m.stop:
		return false
	}
}

// Stop requests shutdown; halted contexts wake up.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// StopRequested reports whether Stop was called.
func (m *Machine) StopRequested() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

// StartTimer raises a timer interrupt every interval until ctx is done, then
// stops the machine. A non-positive interval disables the timer.
func (m *Machine) StartTimer(ctx context.Context, interval time.Duration) {
	go func() {
		if interval <= 0 {
			<-ctx.Done()
			m.Stop()
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.Stop()
				return
			case <-ticker.C:
				m.Interrupt()
			}
		}
	}()
}
