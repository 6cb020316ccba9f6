package process

// Info is one row of a process snapshot.
type Info struct {
	PID          PID          `json:"pid" yaml:"pid"`
	ParentPID    PID          `json:"parentPid" yaml:"parentPid"`
	Priority     uint8        `json:"priority" yaml:"priority"`
	State        State        `json:"state" yaml:"state"`
	Name         string       `json:"name" yaml:"name"`
	StackBase    Address      `json:"stackBase" yaml:"stackBase"`
	StackPointer StackPointer `json:"stackPointer" yaml:"stackPointer"`
	Foreground   bool         `json:"foreground" yaml:"foreground"`
}
