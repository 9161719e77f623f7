package task

import (
	"encoding/json"
	"fmt"
)

// State represents the current lifecycle stage of a task.
type State int

const (
	// Pending indicates the task is queued and awaiting placement
	Pending State = iota

	// Scheduled indicates the task has been assigned to a worker
	Scheduled

	// Running indicates the task is actively executing on a worker
	Running

	// Completed indicates the task finished or was gracefully stopped
	Completed

	// Failed indicates the task terminated abnormally
	Failed
)

var stateNames = map[State]string{
	Pending:   "Pending",
	Scheduled: "Scheduled",
	Running:   "Running",
	Completed: "Completed",
	Failed:    "Failed",
}

var stateValues = map[string]State{
	"Pending":   Pending,
	"Scheduled": Scheduled,
	"Running":   Running,
	"Completed": Completed,
	"Failed":    Failed,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalJSON encodes the state as its wire name, e.g. "Running".
func (s State) MarshalJSON() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown task state %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a wire name into a state and rejects unknown names.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := stateValues[name]
	if !ok {
		return fmt.Errorf("unknown task state %q", name)
	}
	*s = v
	return nil
}

// stateTransitions maps each state to the states it may move to. Completed
// and Failed are terminal sinks: nothing leaves them, not even a self-loop.
var stateTransitions = map[State][]State{
	Pending:   {Scheduled},
	Scheduled: {Scheduled, Running, Failed},
	Running:   {Running, Completed, Failed},
	Completed: {},
	Failed:    {},
}

// ValidStateTransition reports whether a task may move from src to dst.
// Unknown source states are never valid. The worker consults this before
// every runtime side effect.
func ValidStateTransition(src, dst State) bool {
	targets, ok := stateTransitions[src]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == dst {
			return true
		}
	}
	return false
}
