package model

import "time"

// Response is the envelope wrapping every rfdiff API response.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination describes the page returned by GET /api/v1/runs.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Page size bounds for run listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions selects a page of the run ledger, newest first.
type ListOptions struct {
	Limit  int
	Offset int
	State  string // PENDING, RUNNING, SUCCESS or FAILED; empty lists all
}

// DefaultListOptions returns the first page of every run.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultPageSize}
}

// Clamp keeps Limit within [1, MaxPageSize] and Offset non-negative.
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
