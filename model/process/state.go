package process

import "fmt"

// State is the scheduling state of a process.
type State uint8

const (
	Ready State = iota
	Running
	Blocked
	Zombie
	Dead
)

var stateNames = [...]string{
	Ready:   "ready",
	Running: "running",
	Blocked: "blocked",
	Zombie:  "zombie",
	Dead:    "dead",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Live reports whether a process in this state is still indexed by the scheduler.
func (s State) Live() bool {
	return s != Dead
}
