package model

// RunState represents the lifecycle state of a Run.
type RunState string

const (
	RunStatePending RunState = "PENDING"
	RunStateRunning RunState = "RUNNING"
	RunStateSuccess RunState = "SUCCESS"
	RunStateFailed  RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateSuccess, RunStateFailed:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for Runs.
// A pending run may fail directly when setup or validation aborts it.
var ValidRunTransitions = map[RunState][]RunState{
	RunStatePending: {RunStateRunning, RunStateFailed},
	RunStateRunning: {RunStateSuccess, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RuntimeType identifies how the tool process is launched.
type RuntimeType string

const (
	RuntimeNone      RuntimeType = "none"
	RuntimeDocker    RuntimeType = "docker"
	RuntimeApptainer RuntimeType = "apptainer"
)

// FailurePolicy decides what a non-zero tool exit means for the caller.
type FailurePolicy string

const (
	// FailureStrict returns a ToolFailureError to the caller.
	FailureStrict FailurePolicy = "strict"
	// FailureTolerate logs the failure and still publishes the output root.
	// The run record is marked FAILED either way.
	FailureTolerate FailurePolicy = "tolerate"
)
