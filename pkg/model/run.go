package model

import "time"

// Run records one execution of the structure generator.
type Run struct {
	ID             string       `json:"id"`
	RunName        string       `json:"run_name"`
	State          RunState     `json:"state"`
	Params         ParameterSet `json:"params"`
	Runtime        RuntimeType  `json:"runtime,omitempty"`
	Command        []string     `json:"command,omitempty"`
	ExitCode       *int         `json:"exit_code,omitempty"`
	OutputLocation string       `json:"output_location,omitempty"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// Transition moves the run to next, or returns an InvalidTransitionError.
func (r *Run) Transition(next RunState) error {
	if !r.State.CanTransitionTo(next) {
		return &InvalidTransitionError{Entity: "Run", ID: r.ID, From: string(r.State), To: string(next)}
	}
	now := time.Now().UTC()
	switch next {
	case RunStateRunning:
		r.StartedAt = &now
	case RunStateSuccess, RunStateFailed:
		r.CompletedAt = &now
	}
	r.State = next
	return nil
}
