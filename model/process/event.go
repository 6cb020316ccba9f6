package process

// ChangeType classifies lifecycle notifications.
type ChangeType string

const (
	ChangeCreated    ChangeType = "created"
	ChangeState      ChangeType = "state"
	ChangePriority   ChangeType = "priority"
	ChangeTerminated ChangeType = "terminated"
	ChangeDestroyed  ChangeType = "destroyed"
)

// Change describes one lifecycle transition.
type Change struct {
	Type     ChangeType `json:"type"`
	PID      PID        `json:"pid"`
	Parent   PID        `json:"parent"`
	Name     string     `json:"name"`
	State    State      `json:"state"`
	Priority uint8      `json:"priority"`
	RetValue int32      `json:"retValue,omitempty"`
}
