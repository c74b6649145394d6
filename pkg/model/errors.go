package model

import (
	"fmt"
	"strings"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrConflict   ErrorCode = "CONFLICT"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the rfdiff API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// ConfigError reports a parameter set that cannot be turned into a command.
// It is raised before any process is spawned.
type ConfigError struct {
	Fields []FieldError
}

// NewConfigError creates a ConfigError for a single field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid configuration"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// APIError converts the ConfigError to a VALIDATION_ERROR envelope.
func (e *ConfigError) APIError() *APIError {
	return NewValidationError("invalid configuration", e.Fields...)
}

// RunConflictError reports that another run with the same name is still
// active. Runs with the same name share an output directory.
type RunConflictError struct {
	RunName string
	RunID   string
	State   RunState
}

func (e *RunConflictError) Error() string {
	return fmt.Sprintf("run name %s is in use by %s run %s", e.RunName, e.State, e.RunID)
}

// APIError converts the RunConflictError to a CONFLICT envelope.
func (e *RunConflictError) APIError() *APIError {
	return &APIError{
		Code:    ErrConflict,
		Message: e.Error(),
		Details: []FieldError{{Field: "run_name", Message: "an active run already uses this name"}},
	}
}

// ToolFailureError reports that the external tool exited with a non-zero status.
type ToolFailureError struct {
	RunName  string
	ExitCode int
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("run %s: tool exited with code %d", e.RunName, e.ExitCode)
}

// SetupError reports an environment failure (GPU probe, output directory,
// staging) that aborts the run.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}
