package consensus

import "github.com/quorumkit/benor-node/pkg/value"

// State is the Driver's position in the IDLE -> RUNNING ->
// DECIDED/DEAD state machine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDecided
	StateDead
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDecided:
		return "decided"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Snapshot is the consistent, lock-protected view of a node's state
// exposed to the control surface. For a faulty node every pointer field
// is nil; encoding/json renders a nil *T as JSON null.
type Snapshot struct {
	Killed  bool
	X       *value.Value
	Decided *bool
	K       *uint64
}
